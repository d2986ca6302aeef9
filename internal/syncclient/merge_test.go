package syncclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

func doc(state map[string][]model.Item) *model.Document {
	return &model.Document{State: state}
}

func ids(items []model.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID())
	}
	return out
}

func TestReconcile_RemoteNewerWins(t *testing.T) {
	local := doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "A", "updatedAt": "2024-01-01T00:00:00Z"}},
	})
	remote := doc(map[string][]model.Item{
		"tasks": {
			{"id": "t1", "name": "B", "updatedAt": "2024-02-01T00:00:00Z"},
			{"id": "t2", "name": "C"},
		},
	})

	changed := reconcile(local, remote)
	require.True(t, changed)

	tasks := local.Collection("tasks")
	require.Equal(t, []string{"t1", "t2"}, ids(tasks))
	require.Equal(t, "B", tasks[0].StringField("name"))
	require.Equal(t, "2024-02-01T00:00:00Z", tasks[0].StringField("updatedAt"))
	require.Equal(t, "C", tasks[1].StringField("name"))
}

func TestReconcile_DateOnlyTimestamps(t *testing.T) {
	local := doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "A", "updatedAt": "2024-01-01"}},
	})
	remote := doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "B", "updatedAt": "2024-02-01"}},
	})

	changed := reconcile(local, remote)
	require.True(t, changed)
	require.Equal(t, "B", local.Collection("tasks")[0].StringField("name"))

	// and a date-only stamp still beats an older full stamp
	local = doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "old", "updatedAt": "2024-01-01T00:00:00Z"}},
	})
	remote = doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "new", "updatedAt": "2024-02-01"}},
	})
	reconcile(local, remote)
	require.Equal(t, "new", local.Collection("tasks")[0].StringField("name"))
}

func TestReconcile_LocalNewerKeepsContent(t *testing.T) {
	local := doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "local", "updatedAt": "2024-03-01T00:00:00Z"}},
	})
	remote := doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "remote", "updatedAt": "2024-01-01T00:00:00Z"}},
	})

	reconcile(local, remote)
	require.Equal(t, "local", local.Collection("tasks")[0].StringField("name"))
}

func TestReconcile_MissingTimestampLosesToTimestamped(t *testing.T) {
	local := doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "untimed"}},
	})
	remote := doc(map[string][]model.Item{
		"tasks": {{"id": "t1", "name": "timed", "updatedAt": "2020-01-01T00:00:00Z"}},
	})

	reconcile(local, remote)
	require.Equal(t, "timed", local.Collection("tasks")[0].StringField("name"))
}

func TestReconcile_UnionOfIDs(t *testing.T) {
	local := doc(map[string][]model.Item{
		"spaces": {{"id": "s1"}, {"id": "s2"}},
	})
	remote := doc(map[string][]model.Item{
		"spaces": {{"id": "s2"}, {"id": "s3"}},
	})

	reconcile(local, remote)
	require.ElementsMatch(t, []string{"s1", "s2", "s3"}, ids(local.Collection("spaces")))
}

func TestReconcile_StickyOverlaySurvivesNewerLocal(t *testing.T) {
	local := doc(map[string][]model.Item{
		"spaces": {{"id": "s1", "name": "mine", "updatedAt": "2030-01-01T00:00:00Z"}},
	})
	remote := doc(map[string][]model.Item{
		"spaces": {{
			"id": "s1", "isShared": true, "ownerId": "u2", "ownerName": "Bob",
			"permission": "edit", "name": "Team (Bob)", "updatedAt": "2020-01-01T00:00:00Z",
		}},
	})

	reconcile(local, remote)
	got := local.Collection("spaces")[0]
	require.Equal(t, true, got["isShared"])
	require.Equal(t, "u2", got.StringField("ownerId"))
	require.Equal(t, "Bob", got.StringField("ownerName"))
	require.Equal(t, "edit", got.StringField("permission"))
	// name is one of the sticky overlay fields as well
	require.Equal(t, "Team (Bob)", got.StringField("name"))
}

func TestReconcile_NoSharedMarkerNoOverlay(t *testing.T) {
	local := doc(map[string][]model.Item{
		"spaces": {{"id": "s1", "name": "mine", "updatedAt": "2030-01-01T00:00:00Z"}},
	})
	remote := doc(map[string][]model.Item{
		"spaces": {{"id": "s1", "name": "theirs", "updatedAt": "2020-01-01T00:00:00Z"}},
	})

	reconcile(local, remote)
	require.Equal(t, "mine", local.Collection("spaces")[0].StringField("name"))
}

func TestReconcile_UntrackedCollectionsIgnored(t *testing.T) {
	local := doc(map[string][]model.Item{
		"notifications": {{"id": "n1"}},
	})
	remote := doc(map[string][]model.Item{
		"notifications": {{"id": "n2"}},
	})

	changed := reconcile(local, remote)
	require.False(t, changed)
	require.Equal(t, []string{"n1"}, ids(local.Collection("notifications")))
}

func TestFoldSharedView_AppendAndOverwrite(t *testing.T) {
	remote := doc(map[string][]model.Item{
		"spaces": {{"id": "s1", "name": "plain", "color": "red"}},
	})
	view := &SharedView{
		Spaces: []model.Item{{"id": "s1", "name": "plain (Bob)", "isShared": true}},
		Tasks:  []model.Item{{"id": "t9", "name": "theirs"}},
	}

	foldSharedView(remote, view)

	sp := remote.Collection("spaces")
	require.Len(t, sp, 1)
	require.Equal(t, "plain (Bob)", sp[0].StringField("name"))
	// shallow assign keeps fields the shared version doesn't carry
	require.Equal(t, "red", sp[0].StringField("color"))
	require.Equal(t, true, sp[0]["isShared"])

	require.Equal(t, []string{"t9"}, ids(remote.Collection("tasks")))
}

func TestFoldSharedView_NilView(t *testing.T) {
	remote := doc(map[string][]model.Item{"spaces": {{"id": "s1"}}})
	foldSharedView(remote, nil)
	require.Equal(t, []string{"s1"}, ids(remote.Collection("spaces")))
}
