package report

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/ohowland/simpflex/internal/lib/report/kafkasink"
	"github.com/ohowland/simpflex/internal/lib/report/mongodb"
	"github.com/ohowland/simpflex/internal/lib/report/mqttsink"
	"github.com/ohowland/simpflex/internal/lib/report/natshandler"
	"github.com/ohowland/simpflex/internal/lib/report/sqldb"
	"github.com/ohowland/simpflex/internal/pkg/config"
)

type connector interface {
	Connect(ctx context.Context) error
}

// Open builds and connects every sink named in the configuration. Sinks
// already opened are closed if a later one fails.
func Open(ctx context.Context, c config.Sinks, log logr.Logger) (*Fanout, error) {
	f := NewFanout(log)

	add := func(s Sink, err error) error {
		if err != nil {
			return err
		}
		if conn, ok := s.(connector); ok {
			if err := conn.Connect(ctx); err != nil {
				return err
			}
		}
		f.sinks = append(f.sinks, s)
		return nil
	}

	var err error
	if c.MongoDB != "" {
		h, e := mongodb.New(c.MongoDB, log)
		err = add(h, e)
	}
	if err == nil && c.SQL != "" {
		h, e := sqldb.New(c.SQL, log)
		err = add(h, e)
	}
	if err == nil && c.NATS != "" {
		h, e := natshandler.New(c.NATS, log)
		err = add(h, e)
	}
	if err == nil && c.Kafka != "" {
		h, e := kafkasink.New(c.Kafka, log)
		err = add(h, e)
	}
	if err == nil && c.MQTT != "" {
		h, e := mqttsink.New(c.MQTT, log)
		err = add(h, e)
	}
	if err != nil {
		f.Close(ctx)
		return nil, err
	}
	return f, nil
}
