package outputs

import (
	"context"
	"fmt"
	"strings"

	"digestbot/config"

	"github.com/rs/zerolog"
)

// Mode selects the primary sinks of a run
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeFeishu Mode = "feishu"
	ModeLocal  Mode = "local"
	ModeBoth   Mode = "both"
)

// ParseMode validates an --output value. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeFeishu, ModeLocal, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("%w: output %q (valid: feishu, local, both, auto)", config.ErrInvalid, s)
	}
}

// Resolve turns auto into both when the document sink is configured and
// local otherwise.
func (m Mode) Resolve(feishuEnabled bool) Mode {
	if m != ModeAuto {
		return m
	}
	if feishuEnabled {
		return ModeBoth
	}
	return ModeLocal
}

// PrimarySinks returns the sinks selected by a resolved mode, document sink
// first.
func PrimarySinks(m Mode, cfg *config.Config, logger zerolog.Logger) []Sink {
	var sinks []Sink
	if m == ModeFeishu || m == ModeBoth {
		sinks = append(sinks, NewFeishuSink(cfg, logger))
	}
	if m == ModeLocal || m == ModeBoth {
		sinks = append(sinks, NewLocalSink(cfg.LocalOutputDir))
	}
	return sinks
}

// ArchiveSinks builds the configured S3, Redis and Kafka sinks. A client
// that cannot be created becomes a sink reporting that error. The returned
// func releases the clients.
func ArchiveSinks(ctx context.Context, cfg *config.Config) ([]Sink, func()) {
	var (
		sinks   []Sink
		closers []func()
	)

	if cfg.S3.Bucket != "" {
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			sinks = append(sinks, failedSink{name: "s3", err: err})
		} else {
			sinks = append(sinks, NewS3Sink(client, cfg.S3.Bucket, cfg.S3.Prefix))
		}
	}

	if cfg.Redis.Addr != "" {
		client := NewRedisClient(cfg.Redis)
		closers = append(closers, func() { _ = client.Close() })
		sinks = append(sinks, NewRedisSink(client, cfg.Redis.Channel))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			sinks = append(sinks, failedSink{name: "kafka", err: err})
		} else {
			closers = append(closers, func() { _ = producer.Close() })
			sinks = append(sinks, NewKafkaSink(producer, cfg.Kafka.Topic))
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

// failedSink reports a construction error as a sink failure
type failedSink struct {
	name string
	err  error
}

func (f failedSink) Name() string { return f.name }

func (f failedSink) Write(context.Context, *Digest) (string, error) {
	return "", f.err
}
