package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPasswordFromPipe(t *testing.T) {
	var prompt bytes.Buffer

	password, err := readPassword(strings.NewReader("s3cret pass\r\nignored\n"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "s3cret pass", password)
	assert.Empty(t, prompt.String())

	password, err = readPassword(strings.NewReader("no-newline"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", password)
}

func TestUserCreateAndDeleteOnMemoryStore(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader("secret1\n"))
	rootCmd.SetArgs([]string{"user", "create", "--username", "alice", "--email", "alice@x.com"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.NotEmpty(t, strings.TrimSpace(out.String()))

	// Each command opens a fresh memory store, so the account is gone again.
	rootCmd.SetArgs([]string{"user", "delete", "alice"})
	err := rootCmd.Execute()
	assert.EqualError(t, err, "user not found")
}

func TestUserCreateRejectsShortPassword(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader("123\n"))
	rootCmd.SetArgs([]string{"user", "create", "--username", "bob", "--email", "bob@x.com"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}
