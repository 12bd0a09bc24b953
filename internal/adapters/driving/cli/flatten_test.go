package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/services"
)

const nestedDoc = `{"_id": {"$oid": "65a1b2c3d4e5f60718293a4b"}, "name": "a", "tags": ["x", "y"]}`

func setupTransformTest() func() {
	old := transformService
	transformService = services.NewTransformService(domain.DefaultMaxDepth)
	return func() { transformService = old }
}

func TestFlattenCmd_Stdin(t *testing.T) {
	defer setupTransformTest()()

	out, err := executeCommand(t, nestedDoc, "flatten")

	require.NoError(t, err)
	assert.Contains(t, out, "_id = 65a1b2c3d4e5f60718293a4b")
	assert.Contains(t, out, "tags_0 = x")
	assert.Contains(t, out, "tags_1 = y")
	assert.Contains(t, out, "Table (3 columns, 2 rows)")
}

func TestFlattenCmd_File(t *testing.T) {
	defer setupTransformTest()()
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"_id": 1, "a": {"b": 2}}`), 0o600))

	out, err := executeCommand(t, "", "flatten", path)

	require.NoError(t, err)
	assert.Contains(t, out, "a_b = 2")
	assert.Contains(t, out, "Table (2 columns, 1 rows)")
}

func TestFlattenCmd_InvalidJSON(t *testing.T) {
	defer setupTransformTest()()

	_, err := executeCommand(t, "{not json", "flatten")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFlattenCmd_MissingFile(t *testing.T) {
	defer setupTransformTest()()

	_, err := executeCommand(t, "", "flatten", filepath.Join(t.TempDir(), "missing.json"))

	assert.Error(t, err)
}

func TestFlattenCmd_NotConfigured(t *testing.T) {
	old := transformService
	transformService = nil
	defer func() { transformService = old }()

	_, err := executeCommand(t, nestedDoc, "flatten")

	assert.EqualError(t, err, "transform service not configured")
}
