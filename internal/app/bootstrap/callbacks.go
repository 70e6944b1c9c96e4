package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/practice-booking/internal/callbacks"
	appconfig "github.com/wolfman30/practice-booking/internal/config"
	"github.com/wolfman30/practice-booking/internal/notify"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

// BuildCallbackQueue selects the in-process queue or SQS. awsCfg may be nil
// only when the memory queue is used.
func BuildCallbackQueue(cfg *appconfig.Config, awsCfg *aws.Config) (callbacks.Queue, *callbacks.MemoryQueue) {
	if cfg.UseMemoryQueue || awsCfg == nil || cfg.CallbackQueueURL == "" {
		q := callbacks.NewMemoryQueue(64)
		return q, q
	}
	return callbacks.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.CallbackQueueURL), nil
}

// BuildEmailSender wires the configured email provider.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	providerCfg := notify.ProviderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		},
	}
	if awsCfg == nil {
		return notify.NewEmailSender(providerCfg, nil, logger)
	}
	return notify.NewEmailSender(providerCfg, sesv2.NewFromConfig(*awsCfg), logger)
}
