package format

import (
	"bytes"
	"strings"
	"testing"

	"teamboard-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta"`
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, envelope{Data: model.List{ID: 3, BoardID: 9, Name: "A&B"}}, "", false))
	assert.Equal(t, `{"data":{"id":3,"board_id":9,"name":"A&B","position":0},"meta":null}`+"\n", buf.String())
}

func TestWrite_EDN(t *testing.T) {
	var buf bytes.Buffer
	v := envelope{
		Data: []model.User{{ID: 9007199254740993, Username: "ada", Role: model.RoleAdmin}},
		Meta: map[string]any{"count": 1, "ratio": 0.5, "next": nil},
	}
	require.NoError(t, Write(&buf, v, EDN, false))
	assert.Equal(t,
		`{:data [{:id 9007199254740993 :role "admin" :username "ada"}] :meta {:count 1 :next nil :ratio 0.5}}`+"\n",
		buf.String())
}

func TestWrite_EDNPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]any{"a": []int{1}, "b": []int{}}, EDN, true))
	assert.Equal(t, "{\n  :a [\n    1\n  ]\n  :b []\n}\n", buf.String())
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, envelope{Data: model.Team{ID: 4, Name: "Core"}}, YAML, false))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "data:\n"), out)
	assert.Contains(t, out, "  id: 4\n")
	assert.Contains(t, out, "  name: Core\n")
	assert.Contains(t, out, "meta: null\n")
}

func TestWrite_Unknown(t *testing.T) {
	err := Write(&bytes.Buffer{}, 1, "xml", false)
	require.Error(t, err)
	assert.False(t, Valid("xml"))
	assert.True(t, Valid(""))
}
