package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/storage"
)

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("NTLINK_ADDRESS", "env.test:8080")
	t.Setenv("NTLINK_PROTOCOL", "linux")
	t.Setenv("NTLINK_UIN", "10001")
	dbPath := filepath.Join(t.TempDir(), "ntlink.db")

	root := newRootCmd()
	root.SetArgs([]string{"keystore", "list",
		"--address", "flag.test:8080",
		"--protocol", "android_pad",
		"--database", dbPath,
		"--status-addr", "off",
	})
	require.NoError(t, root.Execute())

	assert.Equal(t, "flag.test:8080", cfg.Address)
	assert.Equal(t, protocol.AndroidPad, cfg.Protocol)
	assert.Equal(t, int64(10001), cfg.Uin)
	assert.Equal(t, dbPath, cfg.DatabasePath)
	assert.Empty(t, cfg.StatusAddr)
}

func TestBadProtocolFlag(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"keystore", "list", "--protocol", "symbian"})
	assert.Error(t, root.Execute())
}

func TestKeystoreCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ntlink.db")

	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	ks := keystore.New(10001, "ntlink")
	ks.SetTickets(keystore.Tickets{D2: []byte("d2"), D2Key: []byte("0123456789abcdef")})
	require.NoError(t, db.Keystores().Save(context.Background(), ks.Document()))
	require.NoError(t, db.Close())

	run := func(args ...string) error {
		root := newRootCmd()
		root.SetArgs(append(args, "--database", dbPath))
		return root.Execute()
	}

	require.NoError(t, run("keystore", "list"))
	require.NoError(t, run("keystore", "show", "10001"))
	assert.Error(t, run("keystore", "show", "20002"))
	assert.Error(t, run("keystore", "show", "abc"))

	require.NoError(t, run("keystore", "delete", "10001"))
	assert.Error(t, run("keystore", "delete", "10001"))
}
