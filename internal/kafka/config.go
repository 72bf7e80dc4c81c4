package kafka

import (
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"github.com/IBM/sarama"
)

// newSaramaConfig creates a producer configuration authenticated with the configured SCRAM mechanism.
func newSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_8_0_0

	mechanism, hashGenerator := scramMechanism(config.Conf.KafkaSASLMechanism)

	cfg.Net.SASL.Enable = true
	cfg.Net.SASL.Mechanism = mechanism
	cfg.Net.SASL.User = config.Conf.KafkaUsername
	cfg.Net.SASL.Password = config.Conf.KafkaPassword
	cfg.Net.SASL.Handshake = true
	cfg.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
		return &XDGSCRAMClient{HashGeneratorFcn: hashGenerator}
	}

	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	return cfg
}
