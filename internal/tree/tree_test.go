package tree

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func strp(s string) *string { return &s }

func rec(id, parent, typ string) jsonl.Record {
	p := jsonl.Payload{UUID: id, Type: typ}
	if parent != "" {
		p.ParentUUID = strp(parent)
	}
	return jsonl.Record{Payload: p}
}

func ids(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func checkInvariants(t *testing.T, f *Forest) {
	t.Helper()
	total := 0
	for _, r := range f.Roots {
		total += 1 + r.Descendants()
		if r.Depth != 0 {
			t.Errorf("root %s has depth %d", r.ID, r.Depth)
		}
	}
	if total != f.TotalCount {
		t.Errorf("TotalCount = %d, sum of subtrees = %d", f.TotalCount, total)
	}
	f.Walk(func(n *Node) bool {
		for _, c := range n.Children {
			if c.Depth != n.Depth+1 {
				t.Errorf("node %s depth %d under parent depth %d", c.ID, c.Depth, n.Depth)
			}
			if c.ParentID != n.ID {
				t.Errorf("node %s parent %s attached under %s", c.ID, c.ParentID, n.ID)
			}
		}
		return true
	})
}

func TestBuildSimple(t *testing.T) {
	records := []jsonl.Record{
		rec("u1", "", "user"),
		rec("a1", "u1", "assistant"),
		rec("u2", "a1", "user"),
		rec("a2", "u2", "assistant"),
	}
	f, err := Build(records, quiet)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, f)

	if len(f.Roots) != 1 || f.Roots[0].ID != "u1" {
		t.Fatalf("expected single root u1, got %v", ids(f.Roots))
	}
	if f.TotalCount != 4 {
		t.Errorf("expected TotalCount 4, got %d", f.TotalCount)
	}
	if f.MaxDepth != 4 {
		t.Errorf("expected MaxDepth 4, got %d", f.MaxDepth)
	}
	n, ok := f.Find("a2")
	if !ok || n.Depth != 3 {
		t.Errorf("expected a2 at depth 3, got %+v", n)
	}
}

func TestBuildOutOfOrderKeepsDiscoveryOrder(t *testing.T) {
	records := []jsonl.Record{
		rec("c2", "r", "assistant"),
		rec("gc", "c1", "user"),
		rec("c1", "r", "assistant"),
		rec("r", "", "user"),
		rec("c3", "r", "assistant"),
	}
	f, err := Build(records, quiet)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, f)

	root := f.Roots[0]
	got := ids(root.Children)
	want := []string{"c2", "c1", "c3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("children order = %v, want %v", got, want)
	}
	c1, _ := f.Find("c1")
	if len(c1.Children) != 1 || c1.Children[0].ID != "gc" {
		t.Errorf("expected gc under c1, got %v", ids(c1.Children))
	}

	var walked []string
	f.Walk(func(n *Node) bool {
		walked = append(walked, n.ID)
		return true
	})
	if fmt.Sprint(walked) != fmt.Sprint([]string{"r", "c2", "c1", "gc", "c3"}) {
		t.Errorf("preorder walk = %v", walked)
	}
}

func TestBuildDeepChain(t *testing.T) {
	const depth = 5000
	records := make([]jsonl.Record, 0, depth)
	for i := 0; i < depth; i++ {
		typ := "user"
		if i%2 == 1 {
			typ = "assistant"
		}
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("n%d", i-1)
		}
		records = append(records, rec(fmt.Sprintf("n%d", i), parent, typ))
	}

	f, err := Build(records, quiet)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, f)
	if f.TotalCount != depth {
		t.Errorf("expected %d nodes, got %d", depth, f.TotalCount)
	}
	if f.MaxDepth < depth {
		t.Errorf("expected MaxDepth >= %d, got %d", depth, f.MaxDepth)
	}
	last, _ := f.Find(fmt.Sprintf("n%d", depth-1))
	if last.Depth != depth-1 {
		t.Errorf("expected deepest node at depth %d, got %d", depth-1, last.Depth)
	}
}

func TestBuildChainOf150(t *testing.T) {
	var records []jsonl.Record
	for i := 0; i < 150; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("m%d", i-1)
		}
		records = append(records, rec(fmt.Sprintf("m%d", i), parent, "user"))
	}
	f, err := Build(records, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if f.MaxDepth < 150 {
		t.Fatalf("expected MaxDepth >= 150, got %d", f.MaxDepth)
	}
}

func TestBuildDropsNonUserRoots(t *testing.T) {
	records := []jsonl.Record{
		rec("s1", "", "system"),
		rec("a1", "s1", "assistant"),
		rec("u1", "", "user"),
		rec("a2", "u1", "assistant"),
		rec("x", "missing", "assistant"),
	}
	f, err := Build(records, quiet)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, f)

	if fmt.Sprint(ids(f.Roots)) != "[u1]" {
		t.Fatalf("expected only u1 retained, got %v", ids(f.Roots))
	}
	if f.TotalCount != 2 {
		t.Errorf("expected TotalCount 2, got %d", f.TotalCount)
	}
	if len(f.Dropped) != 2 {
		t.Fatalf("expected 2 dropped roots, got %+v", f.Dropped)
	}
	if f.Dropped[0].ID != "s1" || f.Dropped[0].Size != 2 {
		t.Errorf("unexpected dropped root %+v", f.Dropped[0])
	}
	if f.Unresolved != 1 {
		t.Errorf("expected 1 unresolved parent, got %d", f.Unresolved)
	}
	if _, ok := f.Find("a1"); ok {
		t.Error("nodes under dropped roots must not be findable")
	}
}

func TestBuildKeepNonUserRoots(t *testing.T) {
	records := []jsonl.Record{
		rec("s1", "", "system"),
		rec("a1", "s1", "assistant"),
		rec("u1", "", "user"),
	}
	f, err := Build(records, quiet, KeepNonUserRoots())
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, f)
	if len(f.Roots) != 2 || f.TotalCount != 3 || len(f.Dropped) != 0 {
		t.Fatalf("expected both roots kept, got roots=%v total=%d dropped=%v", ids(f.Roots), f.TotalCount, f.Dropped)
	}
}

func TestBuildSelfParent(t *testing.T) {
	_, err := Build([]jsonl.Record{rec("u1", "", "user"), rec("loop", "loop", "assistant")}, quiet)
	if !errors.Is(err, ErrSelfParent) {
		t.Fatalf("expected ErrSelfParent, got %v", err)
	}
}

func TestBuildCycleIsUnreachable(t *testing.T) {
	records := []jsonl.Record{
		rec("u1", "", "user"),
		rec("p", "q", "assistant"),
		rec("q", "p", "user"),
	}
	f, err := Build(records, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if f.Unreachable != 2 {
		t.Errorf("expected 2 unreachable nodes, got %d", f.Unreachable)
	}
	if f.TotalCount != 1 {
		t.Errorf("expected TotalCount 1, got %d", f.TotalCount)
	}
}

func TestBuildDuplicatesAndSyntheticIDs(t *testing.T) {
	noID := jsonl.Record{Span: jsonl.Span{Offset: 42}, Payload: jsonl.Payload{Type: "user"}}
	records := []jsonl.Record{
		rec("u1", "", "user"),
		rec("u1", "", "user"),
		noID,
	}
	f, err := Build(records, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if f.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", f.Duplicates)
	}
	if len(f.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %v", ids(f.Roots))
	}
	syn := f.Roots[1]
	if !syn.Synthetic || syn.ID == "" {
		t.Fatalf("expected synthetic id, got %+v", syn)
	}

	again, err := Build([]jsonl.Record{noID}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if again.Roots[0].ID != syn.ID {
		t.Errorf("synthetic ids should be stable: %s vs %s", again.Roots[0].ID, syn.ID)
	}
}

func TestBuildThreadCount(t *testing.T) {
	r1 := rec("u1", "", "user")
	r2 := rec("a1", "u1", "assistant")
	r2.Payload.ThreadID = "t-a"
	r3 := rec("a2", "u1", "assistant")
	r3.Payload.ThreadID = "t-b"
	r4 := rec("a3", "a2", "assistant")
	r4.Payload.ThreadID = "t-b"

	f, err := Build([]jsonl.Record{r1, r2, r3, r4}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if f.ThreadCount != 2 {
		t.Errorf("expected 2 threads, got %d", f.ThreadCount)
	}
}

func TestBuildEmpty(t *testing.T) {
	f, err := Build(nil, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Roots) != 0 || f.TotalCount != 0 || f.MaxDepth != 0 {
		t.Errorf("expected empty forest, got %+v", f)
	}
}
