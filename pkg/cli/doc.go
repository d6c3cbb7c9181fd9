// Package cli provides the conceptdoc command-line interface.
//
// # Overview
//
// This package implements the `conceptdoc-cli` tool. Some commands query a
// running conceptdoc server; others work directly on a directory of YAML
// fixture files.
//
// # Server Commands
//
// tree: Print the navigation tree
//
//	conceptdoc-cli tree --server http://localhost:8080 --depth 3
//	conceptdoc-cli tree --node 12 --json
//
// topic: Fetch the rendered topic fragment of an entity
//
//	conceptdoc-cli topic --id 12
//
// page: Fetch the standalone HTML page of an entity
//
//	conceptdoc-cli page --id 12 --out add.html
//
// # Offline Commands
//
// render: Render a topic from fixture files, optionally as a full page
//
//	conceptdoc-cli render --data ./data --id 12 --page
//	conceptdoc-cli render --css --style monokai > highlight.css
//
// export: Render every entity to <out>/<id>.html, with the highlighting
// stylesheet under <out>/public/resources
//
//	conceptdoc-cli export --data ./data --out ./site --workers 8
//
// import: Load fixture files into a SQL backend
//
//	conceptdoc-cli import --data ./data --type sqlite --dsn ./conceptdoc.db
//	conceptdoc-cli import --type postgres --dsn postgres://localhost/conceptdoc
//
// publish: Upload fixture files as the S3 snapshot read by the s3 backend
//
//	conceptdoc-cli publish --data ./data --bucket docs --prefix v1/ \
//		--endpoint http://localhost:9000 --path-style
//
// # Related Packages
//
//   - pkg/browser: the server the query commands talk to
//   - pkg/storage: fixture loading and the SQL and S3 backends
package cli
