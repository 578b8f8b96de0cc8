// Package main is the entry point for the Custom::DetectiveUpdateGraph handler.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/cfn"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"

	"github.com/byteness/detective-graph-config/lambda"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := lambda.ConfigFromEnv()
	if err != nil {
		log.Fatalf("ERROR: invalid configuration: %v", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		log.Fatalf("ERROR: failed to load AWS config: %v", err)
	}
	if cfg.Tracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}

	handler, err := lambda.NewHandlerFromConfig(cfg, awsCfg)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	log.Printf("INFO: detective-graph-config handler %s (service principal: %s)", Version, cfg.ServicePrincipal)
	awslambda.Start(cfn.LambdaWrap(handler.HandleEvent))
}
