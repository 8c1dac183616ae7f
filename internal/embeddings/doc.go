// Package embeddings turns graph record text into vectors for the derived
// index. It provides the provider abstraction (TEI over HTTP, plus a
// deterministic mock for tests), content-hash caching so unchanged text is
// never re-embedded, and chunked batch embedding with per-item failure
// reporting.
package embeddings
