package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/aws/aws-msk-iam-sasl-signer-go/signer"
	"github.com/xdg-go/scram"

	"github.com/jittakal/avrobq/internal/config/dto"
)

// newSaramaConfig builds the client configuration for draining topics.
func newSaramaConfig(cfg dto.KafkaConfig) (*sarama.Config, error) {
	c := sarama.NewConfig()
	c.ClientID = cfg.ClientID
	c.Version = sarama.V2_8_0_0
	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.Initial = sarama.OffsetOldest

	if err := configureSecurity(c, cfg); err != nil {
		return nil, err
	}
	return c, nil
}

func configureSecurity(c *sarama.Config, cfg dto.KafkaConfig) error {
	switch cfg.SecurityProtocol {
	case "", "PLAINTEXT":
		return nil
	case "SSL":
		enableTLS(c)
		return nil
	case "SASL_PLAINTEXT", "SASL_SSL":
	default:
		return fmt.Errorf("unsupported security protocol: %s", cfg.SecurityProtocol)
	}

	c.Net.SASL.Enable = true
	switch cfg.SASLMechanism {
	case "PLAIN":
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = cfg.SASLUsername
		c.Net.SASL.Password = cfg.SASLPassword
	case "SCRAM-SHA-256":
		c.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		c.Net.SASL.User = cfg.SASLUsername
		c.Net.SASL.Password = cfg.SASLPassword
		c.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{hashGen: scram.SHA256}
		}
	case "SCRAM-SHA-512":
		c.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		c.Net.SASL.User = cfg.SASLUsername
		c.Net.SASL.Password = cfg.SASLPassword
		c.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{hashGen: scram.SHA512}
		}
	case "AWS_MSK_IAM":
		c.Net.SASL.Mechanism = sarama.SASLTypeOAuth
		c.Net.SASL.TokenProvider = &mskTokenProvider{region: cfg.AWSRegion}
	default:
		return fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}

	if cfg.SecurityProtocol == "SASL_SSL" {
		enableTLS(c)
	}
	return nil
}

func enableTLS(c *sarama.Config) {
	c.Net.TLS.Enable = true
	c.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
}

// scramClient adapts xdg-go/scram to sarama.SCRAMClient.
type scramClient struct {
	hashGen scram.HashGeneratorFcn
	conv    *scram.ClientConversation
}

var _ sarama.SCRAMClient = (*scramClient)(nil)

func (c *scramClient) Begin(user, password, authzID string) error {
	client, err := c.hashGen.NewClient(user, password, authzID)
	if err != nil {
		return err
	}
	c.conv = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conv.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conv.Done()
}

// mskTokenProvider signs AWS MSK IAM tokens with the default credential chain.
type mskTokenProvider struct {
	region string
}

var _ sarama.AccessTokenProvider = (*mskTokenProvider)(nil)

func (p *mskTokenProvider) Token() (*sarama.AccessToken, error) {
	token, expiryMs, err := signer.GenerateAuthToken(context.Background(), p.region)
	if err != nil {
		return nil, fmt.Errorf("failed to generate MSK IAM token: %w", err)
	}
	return &sarama.AccessToken{
		Token:      token,
		Extensions: map[string]string{"expiry": strconv.FormatInt(expiryMs, 10)},
	}, nil
}
