package kafkasink

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"gotest.tools/v3/assert"

	simpcfg "github.com/ohowland/simpflex/internal/pkg/config"
	"github.com/ohowland/simpflex/internal/pkg/index"
	"github.com/ohowland/simpflex/internal/pkg/optimize"
	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestGetConfig(t *testing.T) {
	h, err := New("./testdata/config.json", logr.Discard())
	assert.NilError(t, err)
	assert.DeepEqual(t, h.config.Brokers, []string{"localhost:9092"})

	w, ok := h.writer.(*kafka.Writer)
	assert.Assert(t, ok)
	assert.Equal(t, w.Topic, "simpflex.results")
	assert.Equal(t, h.config.ChunkRecords, DefaultChunkRecords)
	assert.Equal(t, w.BatchBytes, int64(0))
}

func TestConfigBatchBytes(t *testing.T) {
	h, err := New("./testdata/chunked.json", logr.Discard())
	assert.NilError(t, err)
	assert.Equal(t, h.config.ChunkRecords, 2)

	w, ok := h.writer.(*kafka.Writer)
	assert.Assert(t, ok)
	assert.Equal(t, w.BatchBytes, int64(4<<20))
}

func TestWriteChunksGeneration(t *testing.T) {
	h, err := New("./testdata/chunked.json", logr.Discard())
	assert.NilError(t, err)
	w := &fakeWriter{}
	h.writer = w

	k := index.TCRY{Tech: "gas-ct", Class: "1", Region: "p1", Year: 2020}
	times := []string{"a", "b", "c", "d", "e"}
	r := scenario.Result{
		RunID:      uuid.New(),
		Scenario:   simpcfg.NewScenario("base", 0.1),
		Status:     optimize.Optimal,
		Spaces:     index.Spaces{TCRY: []index.TCRY{k}},
		Capacity:   map[index.TCRY]float64{k: 23},
		Generation: make(map[index.TCRYH]float64),
	}
	for i, tm := range times {
		r.Spaces.TCRYH = append(r.Spaces.TCRYH, k.At(tm))
		r.Generation[k.At(tm)] = float64(i + 1)
	}
	assert.NilError(t, h.Write(context.Background(), r))

	// summary, one capacity part, generation parts of 2, 2 and 1
	assert.Equal(t, len(w.msgs), 5)
	total := 0
	for i, m := range w.msgs[2:] {
		assert.Equal(t, string(m.Headers[0].Value), KindGeneration)
		assert.Equal(t, string(m.Headers[1].Value), strconv.Itoa(i))
		var gens []scenario.GenerationRecord
		assert.NilError(t, json.Unmarshal(m.Value, &gens))
		total += len(gens)
	}
	assert.Equal(t, total, len(times))
}

func TestConfigRequiresBrokers(t *testing.T) {
	_, err := New("./testdata/nobrokers.json", logr.Discard())
	assert.ErrorContains(t, err, "Brokers")
}

func TestWrite(t *testing.T) {
	h, err := New("./testdata/config.json", logr.Discard())
	assert.NilError(t, err)
	w := &fakeWriter{}
	h.writer = w

	r := scenario.Result{
		RunID:    uuid.New(),
		Scenario: simpcfg.NewScenario("base", 0.1),
		Status:   optimize.Optimal,
	}
	assert.NilError(t, h.Write(context.Background(), r))

	assert.Equal(t, len(w.msgs), 3)
	kinds := []string{KindSummary, KindCapacity, KindGeneration}
	for i, m := range w.msgs {
		assert.Equal(t, string(m.Key), r.RunID.String())
		assert.Equal(t, string(m.Headers[0].Value), kinds[i])
	}

	var sum scenario.Summary
	assert.NilError(t, json.Unmarshal(w.msgs[0].Value, &sum))
	assert.Equal(t, sum.Name, "base")

	assert.NilError(t, h.Close(context.Background()))
	assert.Assert(t, w.closed)
}
