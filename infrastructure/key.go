package infrastructure

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"

	"github.com/byteness/detective-graph-config/permissions"
)

// ResourceTypeKMSKey is the CloudFormation type of a customer managed key.
const ResourceTypeKMSKey = "AWS::KMS::Key"

// Key is a customer managed KMS key in a stack.
type Key struct {
	LogicalID string
}

// Arn returns the key ARN as a template value.
func (k *Key) Arn() interface{} {
	return intrinsics.GetAtt{LogicalName: k.LogicalID, Attribute: "Arn"}
}

// NewKey adds a KMS key whose policy delegates to IAM in the owning account.
// The key is retained when it leaves the stack.
func NewKey(stack *Stack, id string) (*Key, error) {
	keyPolicy := map[string]interface{}{
		"Version": permissions.PolicyVersion,
		"Statement": []interface{}{
			map[string]interface{}{
				"Effect": permissions.EffectAllow,
				"Principal": map[string]interface{}{
					"AWS": intrinsics.Sub{String: "arn:${AWS::Partition}:iam::${AWS::AccountId}:root"},
				},
				"Action":   "kms:*",
				"Resource": "*",
			},
		},
	}

	logicalID, err := stack.AddResource([]string{id, hiddenFromHumanID}, &Resource{
		Type:                ResourceTypeKMSKey,
		Properties:          map[string]interface{}{"KeyPolicy": keyPolicy},
		DeletionPolicy:      DeletionPolicyRetain,
		UpdateReplacePolicy: DeletionPolicyRetain,
	})
	if err != nil {
		return nil, err
	}
	return &Key{LogicalID: logicalID}, nil
}
