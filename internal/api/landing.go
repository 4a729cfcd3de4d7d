package api

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Legal RAG</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #f8fafc; color: #1e293b; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #ffffff; border: 1px solid #e2e8f0; border-radius: 10px; padding: 2.25rem; }
  h1 { font-size: 1.6rem; margin-bottom: 0.4rem; }
  .subtitle { color: #64748b; margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.08em; color: #94a3b8; margin: 1.25rem 0 0.5rem; }
  table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
  td { padding: 0.3rem 0; vertical-align: top; }
  td.route { font-family: "SF Mono", Menlo, monospace; color: #4338ca; white-space: nowrap; padding-right: 1.25rem; }
  pre { background: #f1f5f9; border-radius: 6px; padding: 0.85rem; overflow-x: auto; font-size: 0.8rem; }
</style>
</head>
<body>
<div class="card">
  <h1>Legal RAG</h1>
  <p class="subtitle">Ingest contracts and filings, then search them by meaning. Personal data is redacted before anything is indexed.</p>

  <div class="section-title">Endpoints</div>
  <table>
    <tr><td class="route">POST /ingest</td><td>Upload a PDF or text file (form field <code>file</code>) and index it</td></tr>
    <tr><td class="route">POST /process</td><td>Extract, redact and chunk a file without indexing it</td></tr>
    <tr><td class="route">POST /query</td><td>Return the chunks most similar to <code>{"query": "...", "top_k": 5}</code></td></tr>
    <tr><td class="route">POST /ask</td><td>Answer a question from the indexed chunks</td></tr>
    <tr><td class="route">GET /health</td><td>Vector index connectivity</td></tr>
    <tr><td class="route">/mcp</td><td>MCP Streamable HTTP</td></tr>
  </table>

  <div class="section-title">Example</div>
  <pre><code>curl -F file=@lease.pdf http://localhost:8080/ingest
curl -d '{"query":"When is rent due?"}' http://localhost:8080/query</code></pre>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
