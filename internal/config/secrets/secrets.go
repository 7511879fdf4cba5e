// Package secrets loads startup-only values from .env files and AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
)

// Getter is the part of the Secrets Manager client used here.
type Getter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// GetterFactory builds a Getter for a region. Empty region means the SDK default chain.
type GetterFactory func(ctx context.Context, region string) (Getter, error)

func NewAWSGetter(ctx context.Context, region string) (Getter, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// Fetch reads a JSON object secret and returns its values keyed as in the secret.
// Non-string values are kept in their JSON form.
func Fetch(ctx context.Context, g Getter, secretID string) (map[string]string, error) {
	out, err := g.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch secret %s: %w", secretID, err)
	}
	payload := aws.ToString(out.SecretString)
	if payload == "" && len(out.SecretBinary) > 0 {
		payload = string(out.SecretBinary)
	}
	if payload == "" {
		return nil, fmt.Errorf("secret %s is empty", secretID)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", secretID, err)
	}
	kv := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			kv[k] = s
			continue
		}
		kv[k] = string(v)
	}
	return kv, nil
}

// LoadDotEnv loads the first readable file of ENV_FILE_PATH, paths, or ./.env.
// Variables already present in the environment win.
func LoadDotEnv(paths ...string) string {
	candidates := make([]string, 0, len(paths)+2)
	if p := os.Getenv("ENV_FILE_PATH"); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, paths...)
	candidates = append(candidates, ".env")
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}
