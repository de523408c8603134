package output

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newTestFormatter(format Format) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Formatter{Format: format, Writer: &out, ErrWriter: &errOut}, &out, &errOut
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"TEXT", FormatTable, false},
		{"json", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatter_PrintJSON(t *testing.T) {
	f, out, _ := newTestFormatter(FormatJSON)
	require.NoError(t, f.Print(map[string]int{"pages": 3}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 3, got["pages"])
	assert.Contains(t, out.String(), "\n  \"pages\"")
}

func TestFormatter_PrintYAML(t *testing.T) {
	f, out, _ := newTestFormatter(FormatYAML)
	require.NoError(t, f.Print(map[string]string{"language": "eng"}))

	var got map[string]string
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "eng", got["language"])
}

type stringer struct{}

func (stringer) String() string { return "as text" }

func TestFormatter_PrintGeneric(t *testing.T) {
	f, out, _ := newTestFormatter(FormatTable)
	require.NoError(t, f.Print(stringer{}))
	assert.Equal(t, "as text\n", out.String())

	out.Reset()
	require.NoError(t, f.Print([]int{1, 2}))
	assert.JSONEq(t, "[1,2]", out.String())
}

func TestFormatter_PrintText(t *testing.T) {
	f, out, _ := newTestFormatter(FormatTable)
	require.NoError(t, f.PrintText("report body", map[string]string{"k": "v"}))
	assert.Equal(t, "report body\n", out.String())

	f, out, _ = newTestFormatter(FormatJSON)
	require.NoError(t, f.PrintText("report body", map[string]string{"k": "v"}))
	assert.JSONEq(t, `{"k":"v"}`, out.String())
}

func TestFormatter_Quiet(t *testing.T) {
	f, out, errOut := newTestFormatter(FormatTable)
	f.Quiet = true

	require.NoError(t, f.Print("x"))
	require.NoError(t, f.PrintText("x", nil))
	f.PrintTable(TableData{Headers: []string{"A"}, Rows: [][]string{{"1"}}})
	f.PrintSuccess("ok")
	f.PrintInfo("info")
	f.PrintWarning("careful")
	f.PrintList([]string{"a"})
	f.PrintKeyValue("k", "v")
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	f.PrintError("bad")
	assert.Equal(t, "Error: bad\n", errOut.String())
}

func TestFormatter_PrintTable(t *testing.T) {
	data := TableData{
		Headers: []string{"Format", "Available"},
		Rows: [][]string{
			{"txt", "yes"},
			{"pdf", "no"},
		},
	}

	f, out, _ := newTestFormatter(FormatTable)
	f.PrintTable(data)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "FORMAT")
	assert.Contains(t, lines[1], "txt")
	assert.Contains(t, lines[2], "pdf")

	f, out, _ = newTestFormatter(FormatTable)
	f.NoHeaders = true
	f.PrintTable(data)
	assert.NotContains(t, out.String(), "FORMAT")

	f, out, _ = newTestFormatter(FormatJSON)
	f.PrintTable(data)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	assert.Equal(t, []map[string]string{
		{"Format": "txt", "Available": "yes"},
		{"Format": "pdf", "Available": "no"},
	}, rows)
}

func TestFormatter_Messages(t *testing.T) {
	f, out, errOut := newTestFormatter(FormatTable)
	f.PrintSuccess("saved")
	f.PrintKeyValue("Path", "/tmp/a.txt")
	f.PrintList([]string{"eng", "deu"})
	f.PrintWarning("no font")
	assert.Equal(t, "saved\nPath: /tmp/a.txt\neng\ndeu\n", out.String())
	assert.Equal(t, "Warning: no font\n", errOut.String())
}
