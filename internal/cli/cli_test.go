package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/identity-backend/internal/data/db"
	types "github.com/yungbote/identity-backend/internal/domain"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

func useTempStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("ENV", "test")
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), "test", append([]string{"--no-color"}, args...), &out, &errOut)
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	useTempStore(t)
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date (sqlite)")
}

func TestIdentifyCommandJSON(t *testing.T) {
	useTempStore(t)

	_, err := run(t, "identify", "--email", "biff@hillvalley.edu", "--phone", "555")
	require.NoError(t, err)
	out, err := run(t, "identify", "--email", "tannen@hillvalley.edu", "--phone", "555")
	require.NoError(t, err)

	var got struct {
		Contact domainagg.IdentitySummary `json:"contact"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(1), got.Contact.PrimaryContactID)
	assert.Equal(t, []string{"biff@hillvalley.edu", "tannen@hillvalley.edu"}, got.Contact.Emails)
	assert.Equal(t, []int64{2}, got.Contact.SecondaryContactIDs)
}

func TestIdentifyCommandYAML(t *testing.T) {
	useTempStore(t)
	out, err := run(t, "identify", "--phone", "777", "-o", "yaml")
	require.NoError(t, err)

	var got map[string]domainagg.IdentitySummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"777"}, got["contact"].PhoneNumbers)
	assert.Empty(t, got["contact"].Emails)
}

func TestIdentifyCommandRequiresAField(t *testing.T) {
	useTempStore(t)
	_, err := run(t, "identify")
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	_, err = run(t, "identify", "--email", "a@x.com", "-o", "xml")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	path := useTempStore(t)
	_, err := run(t, "identify", "--email", "marty@hillvalley.edu")
	require.NoError(t, err)

	out, err := run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "OK scanned 1 contacts in 1 clusters")

	// point a secondary at a contact that does not exist
	theDB, err := db.Open(logger.Nop(), db.Config{Driver: db.DriverSQLite, SQLite: db.SQLiteConfig{Path: path}})
	require.NoError(t, err)
	missing := int64(404)
	require.NoError(t, theDB.Create(&types.Contact{
		Email:          ptr("ghost@hillvalley.edu"),
		LinkedID:       &missing,
		LinkPrecedence: types.LinkPrecedenceSecondary,
	}).Error)
	require.NoError(t, db.Close(theDB))

	out, err = run(t, "check")
	assert.ErrorIs(t, err, ErrViolations)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "secondary_dangling")
}

func ptr(s string) *string { return &s }
