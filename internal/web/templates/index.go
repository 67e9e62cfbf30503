// Package templates renders the HTML served by the web package.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Categories offered by the index page. The server accepts any category.
var Categories = []string{"Webinar", "Digest Analitycs", "Digest Product", "Ads", "Offline Event", "Other"}

// DefaultRate is the open rate the slider starts at.
const DefaultRate = 69

// IndexData is what the index page shows of the current session.
type IndexData struct {
	State       string
	Filename    string
	FileID      string
	Total       int
	ArchiveName string
	Category    string
	Rate        int
	MaxFileSize int64
}

// Index renders the upload, select and download form.
func Index(d IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rate := d.Rate
		if d.State != "selected" {
			rate = DefaultRate
		}

		p := &printer{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>User groups</title><style>`)
		p.raw(indexCSS)
		p.raw(`</style></head><body>`)
		p.raw(`<h1>&#10095; User group builder</h1>`)

		p.raw(`<section><h2>&#10095; Newsletter Content</h2>`)
		p.raw(`<textarea id="content" rows="6" maxlength="65536"></textarea></section>`)

		p.raw(`<div class="row">`)

		p.raw(`<section><h2>&#10095; Select a Category</h2><select id="category">`)
		for _, c := range Categories {
			p.raw(`<option value="`)
			p.text(c)
			p.raw(`"`)
			if c == d.Category {
				p.raw(` selected`)
			}
			p.raw(`>`)
			p.text(c)
			p.raw(`</option>`)
		}
		p.raw(`</select></section>`)

		p.raw(`<section><h2>&#10095; Response Rate</h2>`)
		p.raw(`<input id="rate" type="range" min="0" max="100" value="`)
		p.raw(strconv.Itoa(rate))
		p.raw(`"><span id="rate-value">`)
		p.raw(strconv.Itoa(rate))
		p.raw(`%</span></section>`)

		p.raw(`<section><h2>&#10095; Upload UID File</h2>`)
		p.raw(`<p>Select File (CSV, TXT, JSON, XLSX)</p>`)
		p.raw(`<input id="uid_file" type="file" name="uid_file" accept=".csv,.txt,.json,.xlsx,.xlsm">`)
		p.raw(`<p id="file-status">`)
		if d.Filename != "" {
			p.text(fmt.Sprintf("%s: %d users", d.Filename, d.Total))
		}
		p.raw(`</p></section>`)

		p.raw(`</div>`)

		p.raw(`<div class="actions">`)
		p.raw(`<button id="select" type="button">&#10095; Select Users</button>`)
		p.raw(`<button id="download" type="button"`)
		if d.State != "selected" {
			p.raw(` disabled`)
		}
		p.raw(`>&#10095; Download User Groups</button></div>`)

		p.raw(`<div id="result">`)
		if d.ArchiveName != "" {
			p.text(d.ArchiveName)
		}
		p.raw(`</div><div id="errors"></div>`)

		p.raw(`<script data-file-id="`)
		p.text(d.FileID)
		p.raw(`" data-max-size="`)
		p.raw(strconv.FormatInt(d.MaxFileSize, 10))
		p.raw(`" id="page">`)
		p.raw(indexJS)
		p.raw(`</script></body></html>`)

		return p.err
	})
}

// ErrorAlert renders an error fragment for HX-Request callers.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<div class="alert" role="alert"><strong>`)
		p.text(message)
		p.raw(`</strong>`)
		if action != "" {
			p.raw(` <span>`)
			p.text(action)
			p.raw(`</span>`)
		}
		p.raw(` <code>`)
		p.text(code)
		p.raw(`</code></div>`)
		return p.err
	})
}

// printer keeps the first write error so components can write freely.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

const indexCSS = `
body{background:#000;color:#22c55e;font-family:monospace;display:flex;flex-direction:column;align-items:center;gap:2rem;padding:2.5rem}
.row{display:flex;width:100%;justify-content:space-between;gap:2rem}
.row section{flex:1}
textarea,select{width:100%;background:#000;color:#22c55e;border:1px solid #22c55e;padding:.5rem}
button{background:#000;color:#22c55e;border:1px solid #22c55e;padding:.5rem 1.5rem;font-size:1.1rem;cursor:pointer}
button:hover{background:#22c55e;color:#000}
button:disabled{border-color:#6b7280;color:#6b7280;cursor:not-allowed;background:#000}
.actions{display:flex;gap:1rem}
.alert{border:1px solid #ef4444;color:#ef4444;padding:.5rem 1rem}
`

const indexJS = `
(function () {
  const page = document.getElementById("page");
  let fileID = page.dataset.fileId;
  const maxSize = Number(page.dataset.maxSize);
  const rate = document.getElementById("rate");
  const download = document.getElementById("download");
  const errors = document.getElementById("errors");
  const result = document.getElementById("result");

  function fail(body) {
    errors.textContent = body.message + (body.action ? " " + body.action : "") + " (" + body.code + ")";
  }

  async function call(url, init) {
    errors.textContent = "";
    const res = await fetch(url, Object.assign({headers: {"Accept": "application/json"}}, init));
    const body = await res.json();
    if (!res.ok) { fail(body); throw body; }
    return body;
  }

  rate.addEventListener("input", function () {
    document.getElementById("rate-value").textContent = rate.value + "%";
  });

  document.getElementById("uid_file").addEventListener("change", async function (e) {
    const file = e.target.files[0];
    if (!file) return;
    if (maxSize > 0 && file.size > maxSize) {
      fail({message: "File exceeds the maximum size limit", code: "FILE001"});
      return;
    }
    const form = new FormData();
    form.append("uid_file", file);
    download.disabled = true;
    const body = await call("/upload_uid_file", {method: "POST", body: form});
    fileID = body.file_id;
    document.getElementById("file-status").textContent = body.filename + ": " + body.total_users + " users";
  });

  document.getElementById("select").addEventListener("click", async function () {
    const body = await call("/select_users", {
      method: "POST",
      headers: {"Accept": "application/json", "Content-Type": "application/json"},
      body: JSON.stringify({
        category: document.getElementById("category").value,
        open_rate: Number(rate.value),
        newsletter_content: document.getElementById("content").value,
        file_id: fileID
      })
    });
    const s = body.stats;
    result.textContent = body.zip_filename + ": " + s.mail_group + " mail, " +
      s.whatsapp_group + " messaging, " + s.ignored_group + " ignored";
    download.disabled = false;
  });

  download.addEventListener("click", function () {
    window.location = "/download_user_groups";
  });
})();
`
