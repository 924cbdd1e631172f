package shortcuts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vikeyd/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "shortcuts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddListRemove(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("vn", "Việt Nam"))
	require.NoError(t, s.Add("hn", "Hà Nội"))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Ordered by trigger.
	assert.Equal(t, Shortcut{Trigger: "hn", Replacement: "Hà Nội"}, list[0])
	assert.Equal(t, Shortcut{Trigger: "vn", Replacement: "Việt Nam"}, list[1])

	require.NoError(t, s.Remove("hn"))
	list, err = s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "vn", list[0].Trigger)

	// Unknown trigger is not an error.
	assert.NoError(t, s.Remove("nope"))
}

func TestAddReplacesExistingTrigger(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("vn", "Việt Nam"))
	require.NoError(t, s.Add("vn", "Vietnam"))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Vietnam", list[0].Replacement)
}

func TestAddRejectsEmptyTrigger(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Add("", "x"))
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("vn", "Việt Nam"))
	require.NoError(t, s.Clear())

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportTransactional(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add("keep", "me"))

	err := s.Import([]Shortcut{
		{Trigger: "a", Replacement: "1"},
		{Trigger: "", Replacement: "bad"},
	})
	require.Error(t, err)

	// The failed import must not have landed partially.
	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].Trigger)
}

// recordingEngine is an engine.Engine that records shortcut calls.
type recordingEngine struct {
	cleared bool
	added   []Shortcut
}

func (e *recordingEngine) Init() error { return nil }

func (e *recordingEngine) ProcessKey(code uint16, caps, ctrl, shift bool) engine.Result {
	return engine.Result{}
}

func (e *recordingEngine) AddShortcut(trigger, replacement string) {
	e.added = append(e.added, Shortcut{Trigger: trigger, Replacement: replacement})
}

func (e *recordingEngine) ClearShortcuts() {
	e.cleared = true
	e.added = nil
}

func (e *recordingEngine) Clear()                        {}
func (e *recordingEngine) ClearAll()                     {}
func (e *recordingEngine) Configure(opts engine.Options) {}
func (e *recordingEngine) SetEnabled(enabled bool)       {}
func (e *recordingEngine) SetMethod(m engine.Method)     {}
func (e *recordingEngine) RemoveShortcut(trigger string) {}
func (e *recordingEngine) RestoreWord(word string)       {}
func (e *recordingEngine) Close() error                  { return nil }

func TestLoadInto(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add("vn", "Việt Nam"))
	require.NoError(t, s.Add("hcm", "Hồ Chí Minh"))

	eng := &recordingEngine{}
	require.NoError(t, s.LoadInto(eng))

	assert.True(t, eng.cleared)
	assert.Len(t, eng.added, 2)
}

func TestImportYAMLRoundTrip(t *testing.T) {
	in := []Shortcut{
		{Trigger: "vn", Replacement: "Việt Nam"},
		{Trigger: "brb", Replacement: "quay lại ngay"},
	}

	data, err := ExportYAML(in)
	require.NoError(t, err)

	out, err := ImportYAML(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestImportYAMLRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"not yaml":      "\t{{{",
		"wrong version": "version: 9\nshortcuts: []\n",
		"empty trigger": "version: 1\nshortcuts:\n  - trigger: \"\"\n    replacement: x\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ImportYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestImportJSON(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"shortcuts": [
			{"trigger": "vn", "replacement": "Việt Nam"}
		]
	}`)

	list, err := ImportJSON(data)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "vn", list[0].Trigger)
}

func TestImportJSONRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":            `{{{`,
		"missing version":     `{"shortcuts": []}`,
		"empty trigger":       `{"version": 1, "shortcuts": [{"trigger": "", "replacement": "x"}]}`,
		"unknown field":       `{"version": 1, "shortcuts": [], "extra": true}`,
		"wrong types":         `{"version": "1", "shortcuts": []}`,
		"missing replacement": `{"version": 1, "shortcuts": [{"trigger": "vn"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ImportJSON([]byte(doc))
			assert.Error(t, err)
		})
	}
}
