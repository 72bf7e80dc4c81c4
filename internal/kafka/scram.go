package kafka

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

var (
	SHA256 scram.HashGeneratorFcn = sha256.New
	SHA512 scram.HashGeneratorFcn = sha512.New
)

var _ sarama.SCRAMClient = (*XDGSCRAMClient)(nil)

type XDGSCRAMClient struct {
	*scram.Client
	*scram.ClientConversation
	scram.HashGeneratorFcn
}

func (x *XDGSCRAMClient) Begin(userName, password, authzID string) error {
	client, err := x.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}

	x.Client = client
	x.ClientConversation = client.NewConversation()

	return nil
}

func (x *XDGSCRAMClient) Step(challenge string) (string, error) {
	return x.ClientConversation.Step(challenge)
}

func (x *XDGSCRAMClient) Done() bool {
	return x.ClientConversation.Done()
}

// scramMechanism maps the configured mechanism name to sarama's constant and hash.
func scramMechanism(name string) (sarama.SASLMechanism, scram.HashGeneratorFcn) {
	if name == sarama.SASLTypeSCRAMSHA256 {
		return sarama.SASLTypeSCRAMSHA256, SHA256
	}

	return sarama.SASLTypeSCRAMSHA512, SHA512
}
