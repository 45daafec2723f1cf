package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordIngest(t *testing.T) {
	success := testutil.ToFloat64(IngestTotal.WithLabelValues("success"))
	failed := testutil.ToFloat64(IngestTotal.WithLabelValues("failed"))

	RecordIngest(nil)
	RecordIngest(errors.New("upload failed"))
	RecordIngest(nil)

	assert.Equal(t, success+2, testutil.ToFloat64(IngestTotal.WithLabelValues("success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(IngestTotal.WithLabelValues("failed")))
}

func TestRecordClassification(t *testing.T) {
	before := testutil.ToFloat64(ClassificationTotal.WithLabelValues("fallback", "bad_status"))
	RecordClassification("bad_status", 20*time.Millisecond)
	RecordClassification("", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ClassificationTotal.WithLabelValues("fallback", "bad_status")))
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("tags"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("tags"))
	RecordCache("tags", true)
	RecordCache("tags", false)
	RecordCache("tags", false)
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHits.WithLabelValues("tags")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheMisses.WithLabelValues("tags")))
}

func TestRecordStorage(t *testing.T) {
	before := testutil.ToFloat64(StorageOperations.WithLabelValues("put", "error"))
	RecordStorage("put", errors.New("timeout"))
	assert.Equal(t, before+1, testutil.ToFloat64(StorageOperations.WithLabelValues("put", "error")))
}
