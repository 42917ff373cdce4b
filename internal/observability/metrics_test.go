package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetrics(t *testing.T) {
	t.Parallel()
	RecordStoreOperation("posts", "fetch_all", "fulfilled")
	TrackRemoteCall("databases", "list_documents")(OutcomeOK)

	var out bytes.Buffer
	require.NoError(t, WriteMetrics(&out))

	text := out.String()
	assert.Contains(t, text, "# TYPE feedsync_store_operations_total counter")
	assert.Contains(t, text, `feedsync_store_operations_total{operation="fetch_all",status="fulfilled",store="posts"}`)
	assert.Contains(t, text, `feedsync_remote_requests_total{operation="list_documents",outcome="ok",service="databases"}`)
	assert.Contains(t, text, "feedsync_remote_request_duration_seconds_bucket")
}
