package counter

import (
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"
)

// reportTemplate is the whole report page. Table rows follow snapshot order,
// one per stored filename.
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<style>
table, th, td {
 border: 1px solid black;
 border-collapse: collapse;
}
th {
 background-color: #96D4D4;
}
td {
 text-align: center;
}
</style>
<title>Download counter</title>
</head>
<body>
<h1>Downloads</h1>
<h2>Updated {{.Updated}}</h2>

<table style="width:80%">
  <tr>
    <th>ID</th>
    <th>File</th>
    <th>Date</th>
    <th>Downloads</th>
  </tr>
{{- range .Rows}}
  <tr>
    <td>{{.ID}}</td>
    <td>{{.Filename}}</td>
    <td>{{.Timestamp}}</td>
    <td>{{.Total}}</td>
  </tr>
{{- end}}
</table>
</body>
</html>
`))

type reportRow struct {
	ID        uint
	Filename  string
	Timestamp string
	Total     int64
}

type reportData struct {
	Updated string
	Rows    []reportRow
}

// RenderReport serializes the snapshot into a self-contained HTML document.
// Pure function of the snapshot and render time.
func RenderReport(rows []Download, now time.Time, writeLayout string) (string, error) {
	data := reportData{
		Updated: now.Format(writeLayout),
		Rows:    make([]reportRow, 0, len(rows)),
	}
	for _, r := range rows {
		data.Rows = append(data.Rows, reportRow{
			ID:        r.ID,
			Filename:  r.Filename,
			Timestamp: r.Timestamp.Format(writeLayout),
			Total:     r.Total,
		})
	}
	var b strings.Builder
	if err := reportTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return b.String(), nil
}

// WriteReport renders the snapshot and writes it to path. A write failure is
// fatal for the run.
func WriteReport(path string, rows []Download, now time.Time, writeLayout string) error {
	htm, err := RenderReport(rows, now, writeLayout)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(htm), 0o644); err != nil {
		return fmt.Errorf("writing report %q: %w", path, err)
	}
	return nil
}
