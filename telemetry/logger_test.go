package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisops/lzops/types"
)

func testLogger(buf *bytes.Buffer, structured bool) *Logger {
	return &Logger{
		Logger:     zerolog.New(buf),
		structured: structured,
	}
}

func TestWithRun_AttachesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf, false).WithRun("run-1234")

	logger.Info().Msg("zone complete")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "run-1234", record["correlation_id"])
	assert.Equal(t, "zone complete", record["message"])
}

func TestWithZone_StructuredFields(t *testing.T) {
	zone := types.Zone{
		Name:      "cmsnonprod",
		AccountID: "123456789012",
		RoleName:  "provision",
		Region:    "ap-southeast-2",
	}

	var buf bytes.Buffer
	testLogger(&buf, true).WithZone(zone, "scan").Info().Msg("scanning")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "123456789012", record["account_id"])
	assert.Equal(t, "cmsnonprod", record["account_name"])
	assert.Equal(t, "provision", record["role_name"])
	assert.Equal(t, "scan", record["operation"])
	assert.Equal(t, "ap-southeast-2", record["region"])
}

func TestWithZone_UnstructuredKeepsZoneNameOnly(t *testing.T) {
	zone := types.Zone{Name: "cmsnonprod", AccountID: "123456789012"}

	var buf bytes.Buffer
	testLogger(&buf, false).WithZone(zone, "scan").Info().Msg("scanning")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "cmsnonprod", record["zone"])
	assert.NotContains(t, record, "account_id")
}

func TestRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lzops.log")
	w, err := newRotatingWriter(path, 64, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	line := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 4; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated backup: %v", err)
	}
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(64))
}
