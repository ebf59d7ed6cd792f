// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/clarkhq/clark/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// testEmbedDimension keeps test vectors small; the schema's HNSW index is
// defined with it.
const testEmbedDimension = 8

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx, testEmbedDimension); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// testEmbedding returns a deterministic embedding vector for testing.
func testEmbedding(seed float32) []float32 {
	embedding := make([]float32, testEmbedDimension)
	for i := range embedding {
		embedding[i] = seed + float32(i)/float32(testEmbedDimension)
	}
	return embedding
}

func mustSpace(t *testing.T, name string) int64 {
	t.Helper()
	id, err := testDB.CreateSpace(context.Background(), models.SpaceInput{Name: name})
	if err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}
	return id
}

// =============================================================================
// SEQUENCE TESTS
// =============================================================================

func TestNextID(t *testing.T) {
	ctx := context.Background()

	first, err := testDB.NextID(ctx, "test_seq")
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	second, err := testDB.NextID(ctx, "test_seq")
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	if second != first+1 {
		t.Errorf("Expected consecutive ids, got %d then %d", first, second)
	}

	// Independent sequences don't interfere
	other, err := testDB.NextID(ctx, "test_seq_other")
	if err != nil {
		t.Fatalf("NextID for second sequence failed: %v", err)
	}
	third, err := testDB.NextID(ctx, "test_seq")
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	if third != second+1 {
		t.Errorf("Other sequence bumped test_seq: got %d after %d (other=%d)", third, second, other)
	}
}

// =============================================================================
// SPACE TESTS
// =============================================================================

func TestSpaces(t *testing.T) {
	ctx := context.Background()

	description := "Integration test space"
	id, err := testDB.CreateSpace(ctx, models.SpaceInput{
		Name:        "Space Test",
		Description: &description,
	})
	if err != nil {
		t.Fatalf("CreateSpace failed: %v", err)
	}

	space, err := testDB.GetSpace(ctx, id)
	if err != nil {
		t.Fatalf("GetSpace failed: %v", err)
	}
	if space.Name != "Space Test" {
		t.Errorf("Expected name 'Space Test', got %q", space.Name)
	}
	if space.Description == nil || *space.Description != description {
		t.Errorf("Expected description %q, got %v", description, space.Description)
	}

	spaces, err := testDB.ListSpaces(ctx)
	if err != nil {
		t.Fatalf("ListSpaces failed: %v", err)
	}
	found := false
	for _, s := range spaces {
		sid, _ := models.RecordIDInt64(s.ID)
		if sid == id {
			found = true
		}
	}
	if !found {
		t.Error("ListSpaces should include created space")
	}

	// Non-existent space
	_, err = testDB.GetSpace(ctx, 999999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing space, got %v", err)
	}
}

// =============================================================================
// DOCUMENT AND ANCHOR TESTS
// =============================================================================

func TestDocumentsAndAnchors(t *testing.T) {
	ctx := context.Background()
	spaceID := mustSpace(t, "Document Test Space")

	docID, err := testDB.CreateDocument(ctx, models.DocumentInput{
		SpaceID:  spaceID,
		Filename: "distributed-systems-notes.pdf",
		FileType: "pdf",
		FileURL:  "https://example.com/distributed-systems-notes.pdf",
	})
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	docs, err := testDB.DocumentsForSpace(ctx, spaceID)
	if err != nil {
		t.Fatalf("DocumentsForSpace failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0].Filename != "distributed-systems-notes.pdf" {
		t.Errorf("Unexpected filename %q", docs[0].Filename)
	}

	// Exact and suffix lookup both resolve
	byName, err := testDB.DocumentIDByFilename(ctx, spaceID, "distributed-systems-notes.pdf")
	if err != nil {
		t.Fatalf("DocumentIDByFilename failed: %v", err)
	}
	if byName != docID {
		t.Errorf("Expected document %d, got %d", docID, byName)
	}
	bySuffix, err := testDB.DocumentIDByFilename(ctx, spaceID, "notes.pdf")
	if err != nil {
		t.Fatalf("DocumentIDByFilename (suffix) failed: %v", err)
	}
	if bySuffix != docID {
		t.Errorf("Expected suffix match to document %d, got %d", docID, bySuffix)
	}

	_, err = testDB.DocumentIDByFilename(ctx, spaceID, "no-such-file.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing document, got %v", err)
	}

	// Anchor a thread to the document
	threadID, err := testDB.CreateThread(ctx, spaceID, "Anchor test thread", 1)
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	if err := testDB.LinkThreadToDocument(ctx, threadID, docID, 0); err != nil {
		t.Fatalf("LinkThreadToDocument failed: %v", err)
	}
	// Re-linking the same (thread, document, page) is a no-op, not an error
	if err := testDB.LinkThreadToDocument(ctx, threadID, docID, 0); err != nil {
		t.Fatalf("Duplicate LinkThreadToDocument should not error: %v", err)
	}

	anchors, err := testDB.AnchorsForThread(ctx, threadID)
	if err != nil {
		t.Fatalf("AnchorsForThread failed: %v", err)
	}
	if len(anchors) != 1 {
		t.Errorf("Expected 1 anchor, got %d", len(anchors))
	}

	threads, err := testDB.ThreadsForDocument(ctx, docID)
	if err != nil {
		t.Fatalf("ThreadsForDocument failed: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("Expected 1 thread for document, got %d", len(threads))
	}
	tid, _ := models.RecordIDInt64(threads[0].ID)
	if tid != threadID {
		t.Errorf("Expected thread %d, got %d", threadID, tid)
	}
}

// =============================================================================
// THREAD AND MESSAGE TESTS
// =============================================================================

func newMessage(t *testing.T, threadID int64, role, content, parentPath string, parentID, branchID *int64) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := testDB.NextID(ctx, "message")
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	err = testDB.CreateMessage(ctx, MessageRecord{
		ID:       id,
		ThreadID: threadID,
		UserID:   1,
		Role:     role,
		Content:  content,
		Path:     models.ChildPath(parentPath, id),
		ParentID: parentID,
		BranchID: branchID,
	})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	return id
}

func TestMessageTree(t *testing.T) {
	ctx := context.Background()
	spaceID := mustSpace(t, "Message Test Space")

	threadID, err := testDB.CreateThread(ctx, spaceID, "What is Paxos?", 1)
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}

	thread, err := testDB.GetThread(ctx, threadID)
	if err != nil {
		t.Fatalf("GetThread failed: %v", err)
	}
	if thread.Title != "What is Paxos?" {
		t.Errorf("Unexpected title %q", thread.Title)
	}

	// Main thread: user -> assistant -> user
	m1 := newMessage(t, threadID, models.RoleUser, "What is Paxos?", "", nil, nil)
	m2 := newMessage(t, threadID, models.RoleAssistant, "Paxos is a consensus protocol.", fmt.Sprintf("%d/", m1), &m1, nil)
	m3 := newMessage(t, threadID, models.RoleUser, "Who invented it?", fmt.Sprintf("%d/%d/", m1, m2), &m2, nil)

	// Fork off m2: the fork start carries its own id as branch id
	forkID, err := testDB.NextID(ctx, "message")
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	err = testDB.CreateMessage(ctx, MessageRecord{
		ID:       forkID,
		ThreadID: threadID,
		UserID:   1,
		Role:     models.RoleUser,
		Content:  "Explain it with an example instead.",
		Path:     models.ChildPath(fmt.Sprintf("%d/%d/", m1, m2), forkID),
		ParentID: &m2,
		BranchID: &forkID,
	})
	if err != nil {
		t.Fatalf("CreateMessage (fork) failed: %v", err)
	}
	// Descendant of the fork inherits its branch id
	forkChild := newMessage(t, threadID, models.RoleAssistant, "Imagine three servers voting.",
		fmt.Sprintf("%d/%d/%d/", m1, m2, forkID), &forkID, &forkID)

	// Thread messages come back in insertion order
	all, err := testDB.ThreadMessages(ctx, threadID)
	if err != nil {
		t.Fatalf("ThreadMessages failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(all))
	}
	firstID, _ := all[0].IDInt()
	if firstID != m1 {
		t.Errorf("Expected first message %d, got %d", m1, firstID)
	}

	// Main thread tip ignores branch messages
	last, err := testDB.LastMessageID(ctx, threadID, nil)
	if err != nil {
		t.Fatalf("LastMessageID failed: %v", err)
	}
	if last != m3 {
		t.Errorf("Expected main tip %d, got %d", m3, last)
	}

	// Branch tip is the fork's latest descendant
	branchLast, err := testDB.LastMessageID(ctx, threadID, &forkID)
	if err != nil {
		t.Fatalf("LastMessageID (branch) failed: %v", err)
	}
	if branchLast != forkChild {
		t.Errorf("Expected branch tip %d, got %d", forkChild, branchLast)
	}

	// Fork starts list exactly the messages that opened a branch
	forks, err := testDB.ForkStarts(ctx, threadID)
	if err != nil {
		t.Fatalf("ForkStarts failed: %v", err)
	}
	if len(forks) != 1 {
		t.Fatalf("Expected 1 fork start, got %d", len(forks))
	}
	fid, _ := forks[0].IDInt()
	if fid != forkID {
		t.Errorf("Expected fork start %d, got %d", forkID, fid)
	}
	if !forks[0].IsForkStart() {
		t.Error("Fork start should report IsForkStart")
	}

	// Branch fetch returns fork start plus descendants
	branch, err := testDB.MessagesByBranch(ctx, forkID)
	if err != nil {
		t.Fatalf("MessagesByBranch failed: %v", err)
	}
	if len(branch) != 2 {
		t.Errorf("Expected 2 branch messages, got %d", len(branch))
	}

	// Bulk fetch preserves ascending id order, missing ids are absent
	fetched, err := testDB.MessagesByIDs(ctx, []int64{m2, m1, 999999})
	if err != nil {
		t.Fatalf("MessagesByIDs failed: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(fetched))
	}
	id0, _ := fetched[0].IDInt()
	if id0 != m1 {
		t.Errorf("Expected ascending order starting at %d, got %d", m1, id0)
	}

	// Path round-trips through ParsePath
	msg, err := testDB.GetMessage(ctx, forkChild)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	chain := models.ParsePath(msg.Path)
	want := []int64{m1, m2, forkID, forkChild}
	if len(chain) != len(want) {
		t.Fatalf("Expected chain of %d ids, got %v", len(want), chain)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("Chain mismatch at %d: got %d, want %d", i, chain[i], want[i])
		}
	}

	_, err = testDB.GetMessage(ctx, 999999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing message, got %v", err)
	}

	// Empty thread has no tip yet
	emptyThread, err := testDB.CreateThread(ctx, spaceID, "empty", 1)
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	_, err = testDB.LastMessageID(ctx, emptyThread, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty thread, got %v", err)
	}
}

// =============================================================================
// CHUNK INDEX TESTS
// =============================================================================

func TestChunkSearch(t *testing.T) {
	ctx := context.Background()
	spaceA := mustSpace(t, "Chunk Space A")
	spaceB := mustSpace(t, "Chunk Space B")

	docA, err := testDB.CreateDocument(ctx, models.DocumentInput{SpaceID: spaceA, Filename: "raft.txt", FileType: "txt"})
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	docB, err := testDB.CreateDocument(ctx, models.DocumentInput{SpaceID: spaceB, Filename: "cooking.txt", FileType: "txt"})
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	chunks := []models.ChunkInput{
		{SpaceID: spaceA, DocumentID: docA, Filename: "raft.txt", Position: 0,
			Content:         "Context: leader election.\n\nContent: Raft elects a leader through randomized timeouts.",
			OriginalContent: "Raft elects a leader through randomized timeouts.",
			Embedding:       testEmbedding(0.1)},
		{SpaceID: spaceA, DocumentID: docA, Filename: "raft.txt", Position: 1,
			Content:         "Context: log replication.\n\nContent: The leader replicates log entries to followers.",
			OriginalContent: "The leader replicates log entries to followers.",
			Embedding:       testEmbedding(0.2)},
		{SpaceID: spaceB, DocumentID: docB, Filename: "cooking.txt", Position: 0,
			Content:         "Content: Sourdough needs a mature starter.",
			OriginalContent: "Sourdough needs a mature starter.",
			Embedding:       testEmbedding(0.9)},
	}
	if err := testDB.InsertChunks(ctx, chunks); err != nil {
		t.Fatalf("InsertChunks failed: %v", err)
	}

	// BM25 search respects the space filter
	sparse, err := testDB.SparseSearch(ctx, "leader", &spaceA, 10)
	if err != nil {
		t.Fatalf("SparseSearch failed: %v", err)
	}
	if len(sparse) != 2 {
		t.Errorf("Expected 2 sparse hits in space A, got %d", len(sparse))
	}
	for _, c := range sparse {
		if c.SpaceID != spaceA {
			t.Errorf("Sparse hit leaked from space %d", c.SpaceID)
		}
	}

	sparse, err = testDB.SparseSearch(ctx, "sourdough", &spaceA, 10)
	if err != nil {
		t.Fatalf("SparseSearch failed: %v", err)
	}
	if len(sparse) != 0 {
		t.Errorf("Expected no cross-space sparse hits, got %d", len(sparse))
	}

	// HNSW search stays inside the space
	dense, err := testDB.DenseSearch(ctx, testEmbedding(0.15), &spaceA, 2)
	if err != nil {
		t.Fatalf("DenseSearch failed: %v", err)
	}
	if len(dense) == 0 {
		t.Fatal("Expected dense hits in space A")
	}
	for _, c := range dense {
		if c.SpaceID != spaceA {
			t.Errorf("Dense hit leaked from space %d", c.SpaceID)
		}
		if c.OriginalContent == "" {
			t.Error("Dense hit should carry original content")
		}
	}

	count, err := testDB.CountChunks(ctx, spaceA)
	if err != nil {
		t.Fatalf("CountChunks failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 chunks in space A, got %d", count)
	}

	ids, err := testDB.ListSpaceIDs(ctx)
	if err != nil {
		t.Fatalf("ListSpaceIDs failed: %v", err)
	}
	foundA, foundB := false, false
	for _, id := range ids {
		if id == spaceA {
			foundA = true
		}
		if id == spaceB {
			foundB = true
		}
	}
	if !foundA || !foundB {
		t.Errorf("ListSpaceIDs should include both chunked spaces, got %v", ids)
	}
}
