package logging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// MockCloudWatchAPI implements CloudWatchAPI for testing.
type MockCloudWatchAPI struct {
	mu     sync.Mutex
	calls  []PutLogEventsCall
	err    error
	tokens []string // Sequence tokens to return
}

// PutLogEventsCall records a single call to PutLogEvents.
type PutLogEventsCall struct {
	LogGroupName  string
	LogStreamName string
	Messages      []string
	Timestamps    []int64
	SequenceToken *string
}

func (m *MockCloudWatchAPI) PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := PutLogEventsCall{
		LogGroupName:  aws.ToString(params.LogGroupName),
		LogStreamName: aws.ToString(params.LogStreamName),
		SequenceToken: params.SequenceToken,
	}
	for _, event := range params.LogEvents {
		call.Messages = append(call.Messages, aws.ToString(event.Message))
		if event.Timestamp != nil {
			call.Timestamps = append(call.Timestamps, *event.Timestamp)
		}
	}
	m.calls = append(m.calls, call)

	if m.err != nil {
		return nil, m.err
	}

	var nextToken *string
	if len(m.tokens) > len(m.calls)-1 {
		nextToken = aws.String(m.tokens[len(m.calls)-1])
	}
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: nextToken}, nil
}

func (m *MockCloudWatchAPI) GetCalls() []PutLogEventsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testConfig() *CloudWatchConfig {
	return &CloudWatchConfig{
		LogGroupName:  "/aws/lambda/detective-graph-config",
		LogStreamName: "test-stream-123",
	}
}

func TestCloudWatchLogger_LogEnablement(t *testing.T) {
	mock := &MockCloudWatchAPI{}
	logger := NewCloudWatchLoggerWithClient(mock, testConfig())

	entry := NewEnablementLogEntry(OperationEnable, "o-1", "detective.amazonaws.com", "222222222222", "us-east-1")
	entry.Status = "Enabled"
	logger.LogEnablement(entry)

	calls := mock.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	call := calls[0]
	if call.LogGroupName != "/aws/lambda/detective-graph-config" {
		t.Errorf("LogGroupName = %s", call.LogGroupName)
	}
	if call.LogStreamName != "test-stream-123" {
		t.Errorf("LogStreamName = %s", call.LogStreamName)
	}
	if len(call.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(call.Messages))
	}

	var decoded EnablementLogEntry
	if err := json.Unmarshal([]byte(call.Messages[0]), &decoded); err != nil {
		t.Fatalf("message is not valid JSON: %v", err)
	}
	if decoded.Status != "Enabled" || decoded.AdminAccountID != "222222222222" {
		t.Errorf("unexpected decoded entry: %+v", decoded)
	}
}

func TestCloudWatchLogger_LogLifecycle(t *testing.T) {
	mock := &MockCloudWatchAPI{}
	logger := NewCloudWatchLoggerWithClient(mock, testConfig())

	entry := NewLifecycleLogEntry("Create", "req-1", "arn:aws:cloudformation:us-east-1:111111111111:stack/s/1", "DetectiveGraphConfig248C4B9F")
	entry.Outcome = OutcomeSuccess
	entry.GraphArn = "arn:aws:detective:us-east-1:111111111111:graph:abc"
	logger.LogLifecycle(entry)

	var decoded LifecycleLogEntry
	if err := json.Unmarshal([]byte(mock.GetCalls()[0].Messages[0]), &decoded); err != nil {
		t.Fatalf("message is not valid JSON: %v", err)
	}
	if decoded.GraphArn != entry.GraphArn || decoded.Outcome != OutcomeSuccess {
		t.Errorf("unexpected decoded entry: %+v", decoded)
	}
}

func TestCloudWatchLogger_NoSequenceToken(t *testing.T) {
	// Returned tokens must not be echoed back on later calls.
	mock := &MockCloudWatchAPI{tokens: []string{"token-1", "token-2"}}
	logger := NewCloudWatchLoggerWithClient(mock, testConfig())

	for i := 0; i < 3; i++ {
		logger.LogEnablement(EnablementLogEntry{Operation: OperationEnable})
	}

	calls := mock.GetCalls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	for i, call := range calls {
		if call.SequenceToken != nil {
			t.Errorf("call %d sent sequence token %q", i, aws.ToString(call.SequenceToken))
		}
	}
}

func TestCloudWatchLogger_ErrorHandling(t *testing.T) {
	mock := &MockCloudWatchAPI{err: errors.New("ResourceNotFoundException: log group does not exist")}
	logger := NewCloudWatchLoggerWithClient(mock, testConfig())

	// Must not panic or block.
	logger.LogEnablement(EnablementLogEntry{Operation: OperationEnable})
	logger.LogLifecycle(LifecycleLogEntry{RequestType: "Create"})

	if len(mock.GetCalls()) != 2 {
		t.Errorf("expected 2 attempted calls, got %d", len(mock.GetCalls()))
	}
}

func TestCloudWatchLogger_Timestamp(t *testing.T) {
	mock := &MockCloudWatchAPI{}
	logger := NewCloudWatchLoggerWithClient(mock, testConfig())

	before := time.Now().UnixMilli()
	logger.LogEnablement(EnablementLogEntry{})
	after := time.Now().UnixMilli()

	ts := mock.GetCalls()[0].Timestamps[0]
	if ts < before || ts > after {
		t.Errorf("timestamp %d not within [%d, %d]", ts, before, after)
	}
}

func TestCloudWatchLogger_ConcurrentCalls(t *testing.T) {
	mock := &MockCloudWatchAPI{}
	logger := NewCloudWatchLoggerWithClient(mock, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.LogLifecycle(LifecycleLogEntry{RequestType: "Update"})
		}()
	}
	wg.Wait()

	if got := len(mock.GetCalls()); got != 20 {
		t.Errorf("expected 20 calls, got %d", got)
	}
}
