package db

import "fmt"

// SchemaSQL returns the database schema initialization SQL. The chunk table
// doubles as the dense (HNSW) and sparse (BM25 full-text) retrieval index;
// everything else is plain relational state.
//
// Integer record ids for space/document/thread/message are allocated from the
// sequence table so that message ids are monotonically increasing — the
// materialized-path and branch invariants depend on that ordering.
func SchemaSQL(embedDimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- SEQUENCE TABLE (monotonic integer id allocation)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS sequence SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS next ON sequence TYPE int DEFAULT 0;

    -- ==========================================================================
    -- SPACE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS space SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON space TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON space TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON space TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- DOCUMENT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS space_id ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS filename ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS file_type ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS file_url ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS uploaded_at ON document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS document_space ON document FIELDS space_id;

    -- ==========================================================================
    -- THREAD TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS thread SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS space_id ON thread TYPE int;
    DEFINE FIELD IF NOT EXISTS title ON thread TYPE string;
    DEFINE FIELD IF NOT EXISTS creator_id ON thread TYPE int;
    DEFINE FIELD IF NOT EXISTS is_public ON thread TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS created_at ON thread TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS thread_space ON thread FIELDS space_id;

    -- ==========================================================================
    -- MESSAGE TABLE (materialized-path conversation tree)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS thread_id ON message TYPE int;
    DEFINE FIELD IF NOT EXISTS user_id ON message TYPE int;
    DEFINE FIELD IF NOT EXISTS role ON message TYPE string ASSERT $value IN ["user", "assistant", "system"];
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS path ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS parent_message_id ON message TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS branch_id ON message TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS created_at ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_thread ON message FIELDS thread_id;
    DEFINE INDEX IF NOT EXISTS message_branching ON message FIELDS thread_id, branch_id;

    -- ==========================================================================
    -- CONTEXT ANCHOR TABLE (thread -> document citation links)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS context_anchor SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS thread_id ON context_anchor TYPE int;
    DEFINE FIELD IF NOT EXISTS document_id ON context_anchor TYPE int;
    DEFINE FIELD IF NOT EXISTS page_number ON context_anchor TYPE int DEFAULT 1;

    DEFINE INDEX IF NOT EXISTS unique_anchor ON context_anchor FIELDS thread_id, document_id, page_number UNIQUE;
    DEFINE INDEX IF NOT EXISTS anchor_document ON context_anchor FIELDS document_id, page_number;

    -- ==========================================================================
    -- CHUNK TABLE (dense + sparse retrieval index)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS space_id ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS document_id ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS filename ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS position ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS original_content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_space ON chunk FIELDS space_id;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS chunk_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS chunk_content_ft ON chunk FIELDS content FULLTEXT ANALYZER chunk_analyzer BM25;
`, embedDimension)
}
