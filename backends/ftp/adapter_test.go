package ftp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core"
	"github.com/recommerce/asset/session"
)

// fakeConn is an in-memory FTP server reachable through conn.
type fakeConn struct {
	files map[string][]byte

	// fullPaths makes NameList answer with full paths instead of names
	fullPaths bool

	alive bool
	quit  bool
}

func (c *fakeConn) Stor(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.files[path] = data
	return nil
}

func (c *fakeConn) Download(path string, w io.Writer) error {
	data, ok := c.files[path]
	if !ok {
		return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	}
	_, err := w.Write(data)
	return err
}

func (c *fakeConn) NameList(path string) ([]string, error) {
	var entries []string
	found := path == "."
	for name := range c.files {
		dir := filepath.Dir(name)
		if strings.HasPrefix(name, path+"/") {
			found = true
		}
		if dir != path {
			continue
		}
		if c.fullPaths {
			entries = append(entries, name)
		} else {
			entries = append(entries, filepath.Base(name))
		}
	}
	if !found {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such directory"}
	}
	sort.Strings(entries)
	return entries, nil
}

func (c *fakeConn) Delete(path string) error {
	if _, ok := c.files[path]; !ok {
		return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	}
	delete(c.files, path)
	return nil
}

func (c *fakeConn) Rename(from, to string) error {
	data, ok := c.files[from]
	if !ok {
		return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	}
	c.files[to] = data
	delete(c.files, from)
	return nil
}

func (c *fakeConn) NoOp() error {
	if !c.alive {
		return errors.New("connection reset by peer")
	}
	return nil
}

func (c *fakeConn) Quit() error {
	c.quit = true
	return nil
}

type fakeServer struct {
	files     map[string][]byte
	fullPaths bool
	dials     int
	failDials int
	conns     []*fakeConn
}

func (s *fakeServer) open(ctx context.Context, cfg Config) (conn, error) {
	s.dials++
	if s.dials <= s.failDials {
		return nil, errors.New("connection refused")
	}
	c := &fakeConn{files: s.files, fullPaths: s.fullPaths, alive: true}
	s.conns = append(s.conns, c)
	return c, nil
}

func newTestAdapter(t *testing.T, srv *fakeServer) *Adapter {
	t.Helper()
	cfg := Config{
		Hostname: "ftp.example.com",
		Policy:   session.Policy{MaxTry: 3, TryInterval: time.Millisecond},
	}
	return newAdapter(cfg, srv.open, nil)
}

func TestConfig_Address(t *testing.T) {
	assert.Equal(t, "ftp.example.com:21", Config{Hostname: "ftp.example.com"}.address())
	assert.Equal(t, "ftp.example.com:2121", Config{Hostname: "ftp.example.com", Port: 2121}.address())
}

func TestAdapter_ConnectRetries(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{}, failDials: 2}
	a := newTestAdapter(t, srv)

	require.NoError(t, a.Connect(context.Background()))
	assert.Equal(t, 3, srv.dials)
	assert.Equal(t, backends.TypeFTP, a.Type())
}

func TestAdapter_ConnectFails(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{}, failDials: 10}
	a := newTestAdapter(t, srv)

	err := a.Connect(context.Background())
	assert.ErrorIs(t, err, session.ErrConnection)
	assert.False(t, a.Connected())

	var connErr *session.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 3, connErr.Attempts)
}

func TestAdapter_PutGet(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{}}
	a := newTestAdapter(t, srv)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(local, []byte("binary\x00data"), 0644))

	require.NoError(t, a.Put(ctx, local, "dir/a.bin"))
	assert.Equal(t, []byte("binary\x00data"), srv.files["dir/a.bin"])

	out := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, a.Get(ctx, "dir/a.bin", out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("binary\x00data"), data))

	err = a.Get(ctx, "dir/missing.bin", out)
	assert.ErrorIs(t, err, backends.ErrNotFound)
}

func TestAdapter_ListNormalisesEntries(t *testing.T) {
	tests := []struct {
		name      string
		fullPaths bool
	}{
		{name: "bare names", fullPaths: false},
		{name: "full paths", fullPaths: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &fakeServer{
				files: map[string][]byte{
					"dir/a.txt": []byte("a"),
					"dir/b.txt": []byte("b"),
				},
				fullPaths: tt.fullPaths,
			}
			a := newTestAdapter(t, srv)

			files, err := a.List(context.Background(), "dir")
			require.NoError(t, err)
			assert.Equal(t, []string{"dir/a.txt", "dir/b.txt"}, files)
		})
	}
}

func TestAdapter_ListMissingDirectory(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{}}
	a := newTestAdapter(t, srv)

	_, err := a.List(context.Background(), "nowhere")
	assert.ErrorIs(t, err, backends.ErrNotFound)
}

func TestAdapter_ReconnectsWhenProbeFails(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{"a.txt": []byte("a")}}
	a := newTestAdapter(t, srv)
	ctx := context.Background()

	require.NoError(t, a.Connect(ctx))
	require.Len(t, srv.conns, 1)

	srv.conns[0].alive = false

	files, err := a.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, files)
	assert.Len(t, srv.conns, 2)
	assert.True(t, srv.conns[0].quit)
}

func TestAdapter_Close(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{}}
	a := newTestAdapter(t, srv)

	assert.False(t, a.Connected())
	require.NoError(t, a.Connect(context.Background()))
	assert.True(t, a.Connected())

	client := core.NewClient(a, core.Options{}, nil)
	assert.True(t, client.Connected())

	require.NoError(t, a.Close())
	assert.True(t, srv.conns[0].quit)
	assert.False(t, client.Connected())
}

func TestClientMoveOnFTP(t *testing.T) {
	srv := &fakeServer{files: map[string][]byte{
		"in/report.csv":  []byte("new"),
		"out/report.csv": []byte("old"),
	}}
	a := newTestAdapter(t, srv)
	client := core.NewClient(a, core.Options{TmpDir: t.TempDir()}, nil)
	ctx := context.Background()

	_, err := client.Move(ctx, "in/report.csv", "out", core.ThrowOnConflict)
	assert.ErrorIs(t, err, core.ErrMove)
	assert.Equal(t, []byte("old"), srv.files["out/report.csv"])

	newFile, err := client.Move(ctx, "in/report.csv", "out", core.Overwrite)
	require.NoError(t, err)
	assert.Equal(t, "out/report.csv", newFile)
	assert.Equal(t, map[string][]byte{"out/report.csv": []byte("new")}, srv.files)
}
