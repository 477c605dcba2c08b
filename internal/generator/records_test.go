package generator

import (
	"reflect"
	"testing"
	"time"
)

func rec(path, source string) GeneratedFileRecord {
	return GeneratedFileRecord{Path: path, SourceFile: source, GeneratedAt: time.Now(), Checksum: "abc"}
}

func TestRecordSetAddAndLookup(t *testing.T) {
	rs := NewRecordSet()
	rs.Add(rec("out/routes/user/get-user.ts", "src/user.ts"))
	rs.Add(rec("out/client/user.ts", "src/user.ts"))

	if rs.Len() != 2 {
		t.Errorf("Len = %d", rs.Len())
	}
	if _, ok := rs.Lookup("out/client/user.ts"); !ok {
		t.Error("Lookup missed a tracked artifact")
	}
	if rs.Owns("out/routes/other.ts") {
		t.Error("Owns reported an untracked path")
	}

	got := rs.BySource("src/user.ts")
	want := []string{"out/client/user.ts", "out/routes/user/get-user.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BySource = %v, want %v", got, want)
	}
}

func TestRecordSetRemoveBySource(t *testing.T) {
	rs := NewRecordSet()
	rs.Add(rec("out/a.ts", "src/a.ts"))
	rs.Add(rec("out/b.ts", "src/a.ts"))
	rs.Add(rec("out/c.ts", "src/c.ts"))

	removed := rs.RemoveBySource("src/a.ts")
	if !reflect.DeepEqual(removed, []string{"out/a.ts", "out/b.ts"}) {
		t.Errorf("RemoveBySource = %v", removed)
	}
	if rs.Owns("out/a.ts") || rs.Owns("out/b.ts") {
		t.Error("records survived RemoveBySource")
	}
	if !rs.Owns("out/c.ts") {
		t.Error("unrelated record was dropped")
	}
}

func TestRecordSetPathMovesBetweenSources(t *testing.T) {
	rs := NewRecordSet()
	rs.Add(rec("out/shared.ts", "src/a.ts"))
	rs.Add(rec("out/shared.ts", "src/b.ts"))

	if len(rs.BySource("src/a.ts")) != 0 {
		t.Error("old source still claims the moved artifact")
	}
	if got := rs.BySource("src/b.ts"); len(got) != 1 || got[0] != "out/shared.ts" {
		t.Errorf("new source index = %v", got)
	}
	if rs.Len() != 1 {
		t.Errorf("Len = %d, want 1", rs.Len())
	}
}

func TestRecordSetRemove(t *testing.T) {
	rs := NewRecordSet()
	rs.Add(rec("out/a.ts", "src/a.ts"))
	rs.Remove("out/a.ts")

	if rs.Owns("out/a.ts") {
		t.Error("Remove left the path record")
	}
	if len(rs.BySource("src/a.ts")) != 0 {
		t.Error("Remove left the source index entry")
	}
	// Removing an unknown path is a no-op.
	rs.Remove("out/missing.ts")
}

func TestRecordSetAllSorted(t *testing.T) {
	rs := NewRecordSet()
	rs.Add(rec("out/z.ts", "src/z.ts"))
	rs.Add(rec("out/a.ts", "src/a.ts"))

	all := rs.All()
	if len(all) != 2 || all[0].Path != "out/a.ts" || all[1].Path != "out/z.ts" {
		t.Errorf("All = %+v", all)
	}
}
