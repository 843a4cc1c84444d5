package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- PROJECT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS project SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON project TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON project TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON project TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- SOURCE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS source SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON source TYPE record<project>;
    DEFINE FIELD IF NOT EXISTS type ON source TYPE string ASSERT $value IN ["file", "url"];
    DEFINE FIELD IF NOT EXISTS mime_type ON source TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS original_name ON source TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS url ON source TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS file_bytes ON source TYPE option<bytes>;
    DEFINE FIELD IF NOT EXISTS extracted_text ON source TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS transcript_text ON source TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON source TYPE string DEFAULT "uploaded";
    DEFINE FIELD IF NOT EXISTS error_message ON source TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON source TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS source_project ON source FIELDS project;
    DEFINE INDEX IF NOT EXISTS source_status ON source FIELDS status;

    -- ==========================================================================
    -- CHUNK TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS source ON chunk TYPE record<source>;
    DEFINE FIELD IF NOT EXISTS chunk_index ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS hash ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS headings ON chunk TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS keywords ON chunk TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_source ON chunk FIELDS source;
    DEFINE INDEX IF NOT EXISTS chunk_source_index ON chunk FIELDS source, chunk_index UNIQUE;

    -- ==========================================================================
    -- JOB TABLE (durable work queue)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON job TYPE record<project>;
    DEFINE FIELD IF NOT EXISTS source ON job TYPE option<record<source>>;
    DEFINE FIELD IF NOT EXISTS run ON job TYPE option<record<generation_run>>;
    DEFINE FIELD IF NOT EXISTS type ON job TYPE string
        ASSERT $value IN ["extract_text", "chunk_text", "build_profile", "generate_posts"];
    DEFINE FIELD IF NOT EXISTS status ON job TYPE string DEFAULT "pending"
        ASSERT $value IN ["pending", "processing", "completed", "failed"];
    DEFINE FIELD IF NOT EXISTS attempts ON job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS max_attempts ON job TYPE int DEFAULT 3;
    DEFINE FIELD IF NOT EXISTS next_run_at ON job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS locked_at ON job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS locked_by ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error_message ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS job_status_next_run ON job FIELDS status, next_run_at;
    DEFINE INDEX IF NOT EXISTS job_project ON job FIELDS project;

    -- ==========================================================================
    -- JOB_LOG TABLE (append-only diagnostics)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS job_log SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job ON job_log TYPE record<job>;
    DEFINE FIELD IF NOT EXISTS level ON job_log TYPE string;
    DEFINE FIELD IF NOT EXISTS message ON job_log TYPE string;
    DEFINE FIELD IF NOT EXISTS meta ON job_log TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON job_log TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS job_log_job ON job_log FIELDS job;

    -- ==========================================================================
    -- CONTEXT_PROFILE TABLE (one per project)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS context_profile SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON context_profile TYPE record<project>;
    DEFINE FIELD IF NOT EXISTS audience ON context_profile TYPE string;
    DEFINE FIELD IF NOT EXISTS tone ON context_profile TYPE string;
    DEFINE FIELD IF NOT EXISTS themes ON context_profile TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS key_claims ON context_profile TYPE array<object> FLEXIBLE;
    REMOVE FIELD IF EXISTS key_claims.* ON context_profile;
    DEFINE FIELD key_claims.* ON context_profile TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS updated_at ON context_profile TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS context_profile_project ON context_profile FIELDS project UNIQUE;

    -- ==========================================================================
    -- GENERATION_RUN TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS generation_run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON generation_run TYPE record<project>;
    DEFINE FIELD IF NOT EXISTS tone_preset ON generation_run TYPE string
        ASSERT $value IN ["professional", "casual", "inspirational"];
    DEFINE FIELD IF NOT EXISTS strictness ON generation_run TYPE string
        ASSERT $value IN ["strict", "moderate", "loose"];
    DEFINE FIELD IF NOT EXISTS hashtag_density ON generation_run TYPE string
        ASSERT $value IN ["low", "medium", "high"];
    DEFINE FIELD IF NOT EXISTS status ON generation_run TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS error_message ON generation_run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON generation_run TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS generation_run_project ON generation_run FIELDS project;

    -- ==========================================================================
    -- GENERATED_POST TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS generated_post SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS run ON generated_post TYPE record<generation_run>;
    DEFINE FIELD IF NOT EXISTS platform ON generated_post TYPE string
        ASSERT $value IN ["instagram", "twitter", "linkedin"];
    DEFINE FIELD IF NOT EXISTS instagram_type ON generated_post TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS payload ON generated_post TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS citations ON generated_post TYPE array<object> FLEXIBLE;
    REMOVE FIELD IF EXISTS citations.* ON generated_post;
    DEFINE FIELD citations.* ON generated_post TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON generated_post TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS generated_post_run ON generated_post FIELDS run;

    -- ==========================================================================
    -- RATE_LIMIT TABLE (token buckets, one row per bucket key)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS rate_limit SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS tokens ON rate_limit TYPE float;
    DEFINE FIELD IF NOT EXISTS updated_at ON rate_limit TYPE datetime DEFAULT time::now();
`
