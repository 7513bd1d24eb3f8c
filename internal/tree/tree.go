package tree

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/google/uuid"
)

// ErrSelfParent is returned when a record names itself as its parent.
var ErrSelfParent = errors.New("record references itself as parent")

// syntheticNS seeds ids for records that carry none, so rebuilding the same
// file yields the same ids.
var syntheticNS = uuid.MustParse("6f0c7d1e-3a52-4b8e-9c41-2d7a5e90b1f3")

// Node is one message in a conversation tree. A node is owned by exactly one
// parent (or by the Forest when it is a root).
type Node struct {
	ID        string
	ParentID  string
	Depth     int
	Role      string
	ThreadID  string
	Synthetic bool // ID was generated, not read from the log
	Children  []*Node
	Metadata  *model.Metadata
	Record    jsonl.Record
}

// Descendants counts every node below n.
func (n *Node) Descendants() int {
	count := 0
	stack := append([]*Node(nil), n.Children...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, cur.Children...)
	}
	return count
}

// DroppedRoot records a candidate root that was excluded along with its
// subtree.
type DroppedRoot struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Size int    `json:"size"`
}

// Forest is the set of retained conversation trees.
type Forest struct {
	Roots       []*Node
	TotalCount  int // retained nodes, roots included
	MaxDepth    int // levels in the deepest tree; a lone root counts as 1
	ThreadCount int // distinct non-empty thread ids among retained nodes

	Dropped     []DroppedRoot
	Unresolved  int // nodes whose declared parent is not in the log
	Unreachable int // nodes on parent cycles, never reached from any root
	Duplicates  int // records whose id was already taken

	index map[string]*Node
}

// Find returns the retained node with the given id.
func (f *Forest) Find(id string) (*Node, bool) {
	n, ok := f.index[id]
	return n, ok
}

// Walk visits retained nodes in preorder, roots in order. Returning false
// from fn stops the walk.
func (f *Forest) Walk(fn func(*Node) bool) {
	for _, root := range f.Roots {
		stack := []*Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !fn(n) {
				return
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
	}
}

type builder struct {
	logger       *slog.Logger
	keepNonUser  bool
	requiredRole string
}

type Option func(*builder)

func WithLogger(l *slog.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// KeepNonUserRoots retains candidate roots whatever their role.
func KeepNonUserRoots() Option {
	return func(b *builder) { b.keepNonUser = true }
}

type frame struct {
	idx   int
	depth int
}

// Build reconstructs the forest from records in any order. It never recurses,
// so conversation depth is bounded only by memory.
func Build(records []jsonl.Record, opts ...Option) (*Forest, error) {
	b := &builder{logger: slog.Default(), requiredRole: jsonl.RoleUser}
	for _, o := range opts {
		o(b)
	}

	f := &Forest{index: make(map[string]*Node)}

	// pass 1: arena of nodes addressed by index, adjacency by index
	nodes := make([]*Node, 0, len(records))
	byID := make(map[string]int, len(records))
	for _, rec := range records {
		n := &Node{
			ID:       rec.Payload.ID(),
			Role:     rec.Payload.Role(),
			ThreadID: rec.Payload.Thread(),
			Record:   rec,
		}
		if n.ID == "" {
			n.ID = uuid.NewSHA1(syntheticNS, []byte(strconv.FormatInt(rec.Offset, 10))).String()
			n.Synthetic = true
		}
		if pid, ok := rec.Payload.ParentID(); ok {
			if pid == n.ID {
				return nil, fmt.Errorf("%w: %s (line %d)", ErrSelfParent, n.ID, rec.Line)
			}
			n.ParentID = pid
		}
		if _, dup := byID[n.ID]; dup {
			f.Duplicates++
			b.logger.Warn("dropping record with duplicate id", "id", n.ID, "line", rec.Line)
			continue
		}
		byID[n.ID] = len(nodes)
		nodes = append(nodes, n)
	}

	children := make(map[int][]int)
	var candidates []int
	for i, n := range nodes {
		if n.ParentID != "" {
			if pi, ok := byID[n.ParentID]; ok {
				children[pi] = append(children[pi], i)
				continue
			}
			f.Unresolved++
			b.logger.Debug("parent not found, treating as root candidate", "id", n.ID, "parent", n.ParentID)
		}
		candidates = append(candidates, i)
	}

	// pass 2 + 3: explicit-stack preorder, then bottom-up rebuild
	visited := 0
	threads := make(map[string]struct{})
	for _, root := range candidates {
		var order []frame
		stack := []frame{{idx: root}}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			order = append(order, cur)
			kids := children[cur.idx]
			for j := len(kids) - 1; j >= 0; j-- {
				stack = append(stack, frame{idx: kids[j], depth: cur.depth + 1})
			}
		}
		visited += len(order)

		for k := len(order) - 1; k >= 0; k-- {
			cur := order[k]
			n := nodes[cur.idx]
			n.Depth = cur.depth
			kids := children[cur.idx]
			if len(kids) == 0 {
				continue
			}
			n.Children = make([]*Node, 0, len(kids))
			for _, c := range kids {
				n.Children = append(n.Children, nodes[c])
			}
		}

		rootNode := nodes[root]
		if !b.keepNonUser && rootNode.Role != b.requiredRole {
			f.Dropped = append(f.Dropped, DroppedRoot{ID: rootNode.ID, Role: rootNode.Role, Size: len(order)})
			b.logger.Debug("dropping non-user root", "id", rootNode.ID, "role", rootNode.Role, "subtree", len(order))
			continue
		}

		f.Roots = append(f.Roots, rootNode)
		f.TotalCount += len(order)
		for _, fr := range order {
			n := nodes[fr.idx]
			f.index[n.ID] = n
			if fr.depth+1 > f.MaxDepth {
				f.MaxDepth = fr.depth + 1
			}
			if n.ThreadID != "" {
				threads[n.ThreadID] = struct{}{}
			}
		}
	}
	f.ThreadCount = len(threads)

	f.Unreachable = len(nodes) - visited
	if f.Unreachable > 0 {
		b.logger.Warn("records on parent cycles were not placed in any tree", "count", f.Unreachable)
	}

	return f, nil
}
