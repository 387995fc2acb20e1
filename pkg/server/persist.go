package server

import (
	"context"
	"time"

	"github.com/matst80/killu-finder/pkg/common"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	preferenceSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killu_preference_saves_total",
		Help: "The total number of saved user preferences",
	})
	preferenceSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "killu_preference_save_failures_total",
		Help: "The total number of failed preference saves",
	})
)

const preferenceBatchSize = 50

type preferenceUpdate struct {
	UserId    string
	Selection types.FacetSelection
}

// preferenceWriter saves selections in the background, only the latest
// selection per user in a batch is written.
type preferenceWriter struct {
	store   types.PreferenceStore
	timeout time.Duration
	queue   *common.QueueHandler[preferenceUpdate]
}

func newPreferenceWriter(store types.PreferenceStore, timeout time.Duration) *preferenceWriter {
	w := &preferenceWriter{store: store, timeout: timeout}
	w.queue = common.NewQueueHandler(w.process, preferenceBatchSize, time.Second)
	return w
}

func (w *preferenceWriter) Add(userId string, selection types.FacetSelection) {
	w.queue.Add(preferenceUpdate{UserId: userId, Selection: selection})
}

func latestPerUser(items []preferenceUpdate) []preferenceUpdate {
	index := make(map[string]int, len(items))
	ret := make([]preferenceUpdate, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.UserId]; ok {
			ret[i] = item
			continue
		}
		index[item.UserId] = len(ret)
		ret = append(ret, item)
	}
	return ret
}

func (w *preferenceWriter) process(items []preferenceUpdate) {
	for _, item := range latestPerUser(items) {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.store.SaveUserPreferences(ctx, item.UserId, item.Selection)
		cancel()
		if err != nil {
			go preferenceSaveFailures.Inc()
			logger.Log.Warn("failed to save preferences", zap.String("uid", item.UserId), zap.Error(err))
			continue
		}
		go preferenceSaves.Inc()
	}
}

func (w *preferenceWriter) Close() {
	w.queue.Close()
}
