package lambda

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/byteness/detective-graph-config/logging"
	"github.com/byteness/detective-graph-config/notification"
	"github.com/byteness/detective-graph-config/permissions"
	"github.com/byteness/detective-graph-config/ratelimit"
	"github.com/byteness/detective-graph-config/validate"
)

// Environment variable names for handler configuration.
const (
	EnvServicePrincipal      = "DETECTIVE_SERVICE_PRINCIPAL"
	EnvAdminAccountParameter = "DETECTIVE_ADMIN_ACCOUNT_PARAMETER" // SSM parameter holding the admin account id
	EnvNotifyTopicArn        = "DETECTIVE_NOTIFY_TOPIC_ARN"
	EnvCloudWatchGroup       = "DETECTIVE_CLOUDWATCH_LOG_GROUP" // optional; stdout only when unset
	EnvCloudWatchStream      = "DETECTIVE_CLOUDWATCH_STREAM"    // default: function name
	EnvMetricNamespace       = "DETECTIVE_METRIC_NAMESPACE"     // optional; no metrics when unset
	EnvOrgAPIRPS             = "DETECTIVE_ORG_API_RPS"          // Organizations calls per second, 0 disables pacing
	EnvTracing               = "DETECTIVE_TRACING"              // "true" when the function has active X-Ray tracing
	EnvRegion                = "AWS_REGION"
	envFunctionName          = "AWS_LAMBDA_FUNCTION_NAME"
)

// HandlerConfig contains configuration for the custom-resource handler.
type HandlerConfig struct {
	// ServicePrincipal the execution role policy is scoped to.
	// Defaults to detective.amazonaws.com.
	ServicePrincipal string

	// AdminAccountParameter names an SSM parameter holding the delegated
	// administrator account id, used when the resource has no adminAccountId.
	AdminAccountParameter string

	// NotifyTopicArn lists the SNS topics, comma-separated, that receive
	// lifecycle notifications. Optional.
	NotifyTopicArn string

	// CloudWatchLogGroup enables forwarding of structured entries.
	CloudWatchLogGroup string
	CloudWatchStream   string

	// MetricNamespace enables CloudWatch metrics for each event.
	MetricNamespace string

	// OrgAPIRequestsPerSecond paces Organizations calls; 0 disables pacing.
	OrgAPIRequestsPerSecond int

	// Tracing instruments SDK clients with X-Ray.
	Tracing bool

	// Region the function runs in.
	Region string
}

// ConfigFromEnv reads a HandlerConfig from environment variables.
func ConfigFromEnv() (*HandlerConfig, error) {
	cfg := &HandlerConfig{
		ServicePrincipal:        os.Getenv(EnvServicePrincipal),
		AdminAccountParameter:   os.Getenv(EnvAdminAccountParameter),
		NotifyTopicArn:          os.Getenv(EnvNotifyTopicArn),
		CloudWatchLogGroup:      os.Getenv(EnvCloudWatchGroup),
		CloudWatchStream:        os.Getenv(EnvCloudWatchStream),
		MetricNamespace:         os.Getenv(EnvMetricNamespace),
		OrgAPIRequestsPerSecond: ratelimit.DefaultOrganizationsConfig().RequestsPerWindow,
		Region:                  os.Getenv(EnvRegion),
	}

	if cfg.ServicePrincipal == "" {
		cfg.ServicePrincipal = permissions.DefaultServicePrincipal
	}
	if cfg.CloudWatchStream == "" {
		cfg.CloudWatchStream = os.Getenv(envFunctionName)
	}
	if rps := os.Getenv(EnvOrgAPIRPS); rps != "" {
		n, err := strconv.Atoi(rps)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvOrgAPIRPS, rps)
		}
		cfg.OrgAPIRequestsPerSecond = n
	}
	if v := os.Getenv(EnvTracing); v != "" {
		tracing, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", EnvTracing, v)
		}
		cfg.Tracing = tracing
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for well-formedness.
func (c *HandlerConfig) Validate() error {
	if err := validate.ValidateServicePrincipal(c.ServicePrincipal); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvServicePrincipal, err)
	}
	if c.AdminAccountParameter != "" {
		if err := validate.ValidateParameterName(c.AdminAccountParameter); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAdminAccountParameter, err)
		}
	}
	if c.MetricNamespace != "" {
		if err := validate.ValidateMetricNamespace(c.MetricNamespace); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMetricNamespace, err)
		}
	}
	if c.Region != "" {
		if err := validate.ValidateRegion(c.Region); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRegion, err)
		}
	}
	return nil
}

// Pacer returns the Organizations pacer described by the configuration.
func (c *HandlerConfig) Pacer() (ratelimit.Pacer, error) {
	if c.OrgAPIRequestsPerSecond == 0 {
		return ratelimit.Unlimited(), nil
	}
	return ratelimit.NewTokenBucket(ratelimit.Config{
		RequestsPerWindow: c.OrgAPIRequestsPerSecond,
		Window:            time.Second,
	})
}

// NewHandlerFromConfig wires a Handler with AWS-backed clients, logging and
// notifications built from cfg.
func NewHandlerFromConfig(cfg *HandlerConfig, awsCfg aws.Config) (*Handler, error) {
	pacer, err := cfg.Pacer()
	if err != nil {
		return nil, fmt.Errorf("failed to configure pacer: %w", err)
	}

	h := &Handler{
		Config:   cfg,
		Clients:  NewAWSClientFactory(awsCfg),
		Identity: sts.NewFromConfig(awsCfg),
		Pacer:    pacer,
		Logger:   configureLogger(awsCfg, cfg),
		Notifier: notification.NoopNotifier{},
	}

	if cfg.AdminAccountParameter != "" {
		h.SSM = ssm.NewFromConfig(awsCfg)
		log.Printf("INFO: Admin account resolved from SSM parameter %s when not set on the resource", cfg.AdminAccountParameter)
	}
	if topics := notification.ParseTopics(cfg.NotifyTopicArn); len(topics) > 0 {
		h.Notifier = notification.NewTopicNotifier(sns.NewFromConfig(awsCfg), topics...)
		log.Printf("INFO: Lifecycle notifications enabled (topics: %s)", strings.Join(topics, ", "))
	}

	return h, nil
}

// configureLogger always logs JSON lines to stdout, and adds CloudWatch
// forwarding and metrics when they are configured.
func configureLogger(awsCfg aws.Config, cfg *HandlerConfig) logging.Logger {
	loggers := logging.MultiLogger{logging.NewJSONLogger(os.Stdout)}

	if cfg.CloudWatchLogGroup == "" {
		log.Printf("INFO: CloudWatch forwarding disabled (%s not set)", EnvCloudWatchGroup)
	} else {
		log.Printf("INFO: CloudWatch forwarding enabled (group: %s, stream: %s)", cfg.CloudWatchLogGroup, cfg.CloudWatchStream)
		loggers = append(loggers, logging.NewCloudWatchLogger(awsCfg, &logging.CloudWatchConfig{
			LogGroupName:  cfg.CloudWatchLogGroup,
			LogStreamName: cfg.CloudWatchStream,
		}))
	}

	if cfg.MetricNamespace != "" {
		log.Printf("INFO: CloudWatch metrics enabled (namespace: %s)", cfg.MetricNamespace)
		loggers = append(loggers, logging.NewMetricsLogger(awsCfg, cfg.MetricNamespace))
	}

	if len(loggers) == 1 {
		return loggers[0]
	}
	return loggers
}
