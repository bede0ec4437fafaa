package websocket

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/stretchr/testify/require"
)

func TestHandlerWithLogsIncCounter(t *testing.T) {
	h := HandlerWithLogs(&StreamHandler{}, time.Second).(*handlerWithLogs)
	defer h.Close()

	h.incCounter("test")
	require.Equal(t, 1, h.counter["test"])
}

func TestHandlerWithLogsLogSummary(t *testing.T) {
	testClientID := "test-client"
	h := HandlerWithLogs(&StreamHandler{
		Index:    newTestIndex(t),
		clientID: testClientID,
	}, time.Second).(*handlerWithLogs)
	defer h.Close()

	h.incCounter("query")
	h.incCounter("query")
	h.incCounter("insert")

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	h.logSummary()
	require.Empty(t, h.counter)

	logString := b.String()
	clientIDTag := fmt.Sprintf(`"%s":"%s"`, logs.ClientIDTag, testClientID)
	require.Contains(t, logString, `"query":2`)
	require.Contains(t, logString, `"insert":1`)
	require.Contains(t, logString, `"index":"test"`)
	require.Contains(t, logString, clientIDTag)
	t.Log(b.String())
}

func TestHandlerWithLogsStartSummaryWorker(t *testing.T) {
	var wg sync.WaitGroup
	var once sync.Once

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
		once.Do(wg.Done)
	})

	wg.Add(1)
	h := HandlerWithLogs(&StreamHandler{}, time.Millisecond).(*handlerWithLogs)
	defer h.Close()

	// no summary is logged until a counter is incremented
	h.incCounter("ping")

	wg.Wait()
	out := b.String()
	require.NotEmpty(t, out)
	t.Log(out)
}
