package lambda

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/byteness/detective-graph-config/enablement"
	detectiveerrors "github.com/byteness/detective-graph-config/errors"
	"github.com/byteness/detective-graph-config/logging"
	"github.com/byteness/detective-graph-config/notification"
	"github.com/byteness/detective-graph-config/ratelimit"
	"github.com/byteness/detective-graph-config/validate"
)

// maxLogValueLen bounds event-supplied values in log lines.
const maxLogValueLen = 256

// Handler processes Custom::DetectiveUpdateGraph lifecycle events.
type Handler struct {
	Config   *HandlerConfig
	Clients  ClientFactory
	SSM      SSMAPI      // nil when no admin account parameter is configured
	Identity IdentityAPI // nil assumes the caller is the admin account
	Pacer    ratelimit.Pacer
	Logger   logging.Logger
	Notifier notification.Notifier
}

// outcome is what a lifecycle event did.
type outcome struct {
	admin        string
	status       enablement.Status
	graph        *enablement.GraphResult
	graphSkipped bool
}

// HandleEvent processes one CloudFormation lifecycle event and returns the
// physical resource id and response data. It has the signature cfn.LambdaWrap
// expects.
//
// Create and Update register the delegated administrator (when one is known)
// and turn on auto-enable of the behavior graph. Delete turns auto-enable off
// and deregisters the administrator on a best-effort basis: failures are
// logged and the stack deletion proceeds.
//
// Registration is a management account call while the graph belongs to the
// administrator, so the graph step only runs when no administrator is
// configured or the function runs in the administrator account.
func (h *Handler) HandleEvent(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	start := time.Now()
	entry := logging.NewLifecycleLogEntry(string(event.RequestType), event.RequestID, event.StackID, event.LogicalResourceID)

	props, err := ParseProperties(event.ResourceProperties)
	physicalID := physicalResourceID(event, props.Region)
	entry.PhysicalResourceID = physicalID
	entry.Region = props.Region

	log.Printf("INFO: %s %s (stack: %s, region: %s)", event.RequestType,
		validate.SanitizeForLog(event.LogicalResourceID, maxLogValueLen),
		validate.SanitizeForLog(event.StackID, maxLogValueLen),
		validate.SanitizeForLog(props.Region, maxLogValueLen))

	var out outcome
	switch {
	case err != nil && event.RequestType == cfn.RequestDelete:
		log.Printf("WARNING: Invalid properties on delete, nothing to tear down: %v", err)
		err = nil
	case err != nil:
	case event.RequestType == cfn.RequestCreate, event.RequestType == cfn.RequestUpdate:
		out, err = h.configure(ctx, props)
	case event.RequestType == cfn.RequestDelete:
		out = h.teardown(ctx, props)
	default:
		err = detectiveerrors.NewInvalidRequest("RequestType", fmt.Errorf("unsupported request type %q", event.RequestType))
	}

	entry.DurationMS = time.Since(start).Milliseconds()
	if out.graph != nil {
		entry.GraphArn = out.graph.GraphArn
		entry.MemberCount = out.graph.MemberCount
	}
	if err != nil {
		entry.Outcome = logging.OutcomeFailed
		entry.ErrorCode = detectiveerrors.GetCode(err)
		entry.Error = err.Error()
		log.Printf("ERROR: %s %s failed: %v", event.RequestType, physicalID, err)
	} else {
		entry.Outcome = logging.OutcomeSuccess
	}
	h.Logger.LogLifecycle(entry)
	h.notify(ctx, event, physicalID, props, out, err)

	if err != nil {
		return physicalID, nil, err
	}
	return physicalID, out.data(), nil
}

func (h *Handler) configure(ctx context.Context, props Properties) (outcome, error) {
	var out outcome

	adminAccountID, err := h.resolveAdminAccount(ctx, props)
	if err != nil {
		return out, err
	}

	if adminAccountID != "" {
		out.admin = adminAccountID
		result, err := h.enabler(props.Region).Enable(ctx, props.Request(adminAccountID))
		if err != nil {
			return out, err
		}
		out.status = result.Status
		log.Printf("INFO: %s: %s", result.Status, result.Reason)
	} else {
		log.Printf("INFO: No delegated administrator account configured, skipping registration")
	}

	ok, err := h.ownsGraph(ctx, adminAccountID)
	if err != nil {
		return out, err
	}
	if !ok {
		out.graphSkipped = true
		log.Printf("INFO: Caller is not admin account %s, leaving the behavior graph to that account", adminAccountID)
		return out, nil
	}

	graph, err := enablement.NewGraphConfiguratorWithClient(h.Clients.Detective(props.Region)).UpdateGraph(ctx, props.Region, true)
	if err != nil {
		return out, err
	}
	out.graph = graph
	log.Printf("INFO: Auto-enable turned on for %s (%d members)", graph.GraphArn, graph.MemberCount)
	return out, nil
}

func (h *Handler) teardown(ctx context.Context, props Properties) outcome {
	var out outcome

	adminAccountID, adminErr := h.resolveAdminAccount(ctx, props)
	if adminErr != nil {
		log.Printf("WARNING: Failed to resolve admin account, skipping deregistration: %v", adminErr)
	}

	ok, err := h.ownsGraph(ctx, adminAccountID)
	if err != nil {
		log.Printf("WARNING: Failed to look up caller account, turning off auto-enable anyway: %v", err)
		ok = true
	}
	if ok {
		graph, err := enablement.NewGraphConfiguratorWithClient(h.Clients.Detective(props.Region)).UpdateGraph(ctx, props.Region, false)
		if err != nil {
			log.Printf("WARNING: Failed to turn off auto-enable, continuing delete: %v", err)
		} else {
			out.graph = graph
		}
	} else {
		out.graphSkipped = true
		log.Printf("INFO: Caller is not admin account %s, leaving the behavior graph to that account", adminAccountID)
	}

	if adminErr != nil || adminAccountID == "" {
		return out
	}
	out.admin = adminAccountID

	result, err := h.enabler(props.Region).Disable(ctx, props.Request(adminAccountID))
	if err != nil {
		log.Printf("WARNING: Failed to deregister delegated administrator, continuing delete: %v", err)
		return out
	}
	out.status = result.Status
	return out
}

// ownsGraph reports whether the calling account may change the behavior
// graph's organization configuration: either no administrator is configured
// or the caller is that administrator.
func (h *Handler) ownsGraph(ctx context.Context, adminAccountID string) (bool, error) {
	if adminAccountID == "" || h.Identity == nil {
		return true, nil
	}
	identity, err := h.Identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return false, detectiveerrors.WrapIAMError(err, "GetCallerIdentity")
	}
	return aws.ToString(identity.Account) == adminAccountID, nil
}

func (h *Handler) enabler(region string) *enablement.Enabler {
	return enablement.NewEnablerWithClient(h.Clients.Organizations(region), h.Config.ServicePrincipal,
		enablement.WithPacer(h.Pacer),
		enablement.WithLogger(h.Logger),
	)
}

// resolveAdminAccount returns the admin account from the resource
// properties, falling back to the configured SSM parameter. An empty id
// means no administrator is configured.
func (h *Handler) resolveAdminAccount(ctx context.Context, props Properties) (string, error) {
	if props.AdminAccountID != "" {
		return props.AdminAccountID, nil
	}
	if h.Config.AdminAccountParameter == "" || h.SSM == nil {
		return "", nil
	}

	out, err := h.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(h.Config.AdminAccountParameter),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", h.Config.AdminAccountParameter, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", h.Config.AdminAccountParameter)
	}

	id := aws.ToString(out.Parameter.Value)
	if err := validate.ValidateAccountID(id); err != nil {
		return "", detectiveerrors.NewInvalidRequest(h.Config.AdminAccountParameter, err)
	}
	return id, nil
}

func (h *Handler) notify(ctx context.Context, event cfn.Event, physicalID string, props Properties, out outcome, err error) {
	var eventType notification.EventType
	switch {
	case err != nil:
		eventType = notification.EventFailed
	case event.RequestType == cfn.RequestCreate:
		eventType = notification.EventCreated
	case event.RequestType == cfn.RequestUpdate:
		eventType = notification.EventUpdated
	default:
		eventType = notification.EventDeleted
	}

	n := notification.NewEvent(eventType, props.Region)
	n.StackID = event.StackID
	n.LogicalResourceID = event.LogicalResourceID
	n.PhysicalResourceID = physicalID
	n.ServicePrincipal = props.ServiceName
	n.AdminAccountID = out.admin
	n.Status = string(out.status)
	if out.graph != nil {
		n.GraphArn = out.graph.GraphArn
	}
	if err != nil {
		n.ErrorCode = detectiveerrors.GetCode(err)
		n.Message = err.Error()
	}

	if nerr := h.Notifier.Notify(ctx, n); nerr != nil {
		log.Printf("WARNING: Failed to publish %s notification: %v", eventType, nerr)
	}
}

func (o outcome) data() map[string]interface{} {
	data := map[string]interface{}{}
	if o.status != "" {
		data[DataStatus] = string(o.status)
	}
	if o.graph != nil {
		data[DataGraphArn] = o.graph.GraphArn
		data[DataMemberCount] = o.graph.MemberCount
	}
	if o.graphSkipped {
		data[DataGraphUpdate] = GraphUpdateSkipped
	}
	return data
}

// physicalResourceID keeps the id CloudFormation already knows on Update and
// Delete, and derives one from the region on Create.
func physicalResourceID(event cfn.Event, region string) string {
	if event.RequestType != cfn.RequestCreate && event.PhysicalResourceID != "" {
		return event.PhysicalResourceID
	}
	return PhysicalIDPrefix + region
}
