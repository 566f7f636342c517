package uploadstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/uploadstore"
)

func TestNoopStoreDoesNothing(t *testing.T) {
	var s uploadstore.Store = uploadstore.NoopStore{}
	url, err := s.Mirror(nil, "object", "/tmp/does-not-matter", "application/octet-stream")
	require.NoError(t, err)
	require.Empty(t, url)
}
