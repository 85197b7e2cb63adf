package server

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"plc-copilot/internal/copilot"
	"plc-copilot/internal/store"
	"plc-copilot/internal/types"
)

type IndexPageData struct {
	Theme        string
	DownloadName string
	Panels       types.Panels
	// Shown when the chat request itself fails.
	OrchestratorDown     string
	OrchestratorDownNote string
}

var indexPageTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en" data-theme="{{.Theme}}">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>PLC Copilot</title>
    <style>
      :root {
        --bg: #f5f7fb;
        --panel: #ffffff;
        --text: #1c2333;
        --muted: #5b6680;
        --border: rgba(0, 0, 0, 0.10);
        --accent: #2f6fed;
        --good: #10a37f;
        --warn: #d97706;
        --bad: #dc2626;
        --mono: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", monospace;
        --sans: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial;
      }
      [data-theme="dark"] {
        --bg: #0b1020;
        --panel: #111832;
        --text: #e9edf7;
        --muted: #a5b0cc;
        --border: rgba(255, 255, 255, 0.10);
        --accent: #7aa2ff;
      }
      * { box-sizing: border-box; }
      html, body { height: 100%; }
      body { margin: 0; font-family: var(--sans); color: var(--text); background: var(--bg); }
      header { display: flex; align-items: center; justify-content: space-between; padding: 12px 20px; border-bottom: 1px solid var(--border); }
      header h1 { font-size: 18px; margin: 0; }
      .app { display: grid; grid-template-columns: minmax(320px, 1fr) 1.4fr; gap: 16px; padding: 16px; height: calc(100% - 56px); }
      .card { background: var(--panel); border: 1px solid var(--border); border-radius: 12px; display: flex; flex-direction: column; min-height: 0; }
      #chatMessages { flex: 1; overflow-y: auto; padding: 12px; }
      .message { margin: 8px 0; padding: 10px 12px; border-radius: 10px; white-space: pre-wrap; }
      .message.user { background: rgba(47, 111, 237, 0.12); margin-left: 40px; }
      .message.assistant { background: rgba(127, 127, 127, 0.10); margin-right: 40px; }
      .composer { display: flex; gap: 8px; padding: 12px; border-top: 1px solid var(--border); }
      textarea { flex: 1; resize: none; height: 64px; font-family: var(--sans); padding: 8px; border-radius: 8px; border: 1px solid var(--border); background: var(--bg); color: var(--text); }
      button { border: 1px solid var(--border); background: var(--panel); color: var(--text); border-radius: 8px; padding: 6px 12px; cursor: pointer; }
      button.primary { background: var(--accent); color: #fff; border: none; }
      .tabs { display: flex; gap: 4px; padding: 8px 8px 0; border-bottom: 1px solid var(--border); }
      .tab-button.active { border-bottom: 2px solid var(--accent); }
      .tab-pane { display: none; flex: 1; overflow: auto; margin: 0; padding: 12px; font-family: var(--mono); font-size: 13px; white-space: pre-wrap; }
      .tab-pane.active { display: block; }
      .toolbar { display: flex; gap: 8px; padding: 8px; border-top: 1px solid var(--border); }
      #toasts { position: fixed; right: 16px; bottom: 16px; display: flex; flex-direction: column; gap: 8px; }
      .toast { padding: 8px 12px; border-radius: 8px; color: #fff; background: var(--accent); }
      .toast.success { background: var(--good); }
      .toast.warning { background: var(--warn); }
      .toast.error { background: var(--bad); }
    </style>
  </head>
  <body>
    <header>
      <h1>PLC Copilot</h1>
      <div>
        <button id="clearBtn">Clear chat</button>
        <button id="themeBtn">Toggle theme</button>
      </div>
    </header>
    <main class="app">
      <section class="card">
        <div id="chatMessages"></div>
        <div class="composer">
          <textarea id="promptInput" placeholder="Describe the control logic you need..."></textarea>
          <button id="sendPrompt" class="primary">Send</button>
        </div>
      </section>
      <section class="card">
        <div class="tabs">
          <button class="tab-button active" data-tab="code">Code</button>
          <button class="tab-button" data-tab="variables">Variables</button>
          <button class="tab-button" data-tab="simulation">Simulation</button>
          <button class="tab-button" data-tab="notes">Verification notes</button>
        </div>
        <pre class="tab-pane active" id="code-tab">{{.Panels.Code}}</pre>
        <pre class="tab-pane" id="variables-tab">{{.Panels.Variables}}</pre>
        <pre class="tab-pane" id="simulation-tab">{{.Panels.Simulation}}</pre>
        <pre class="tab-pane" id="notes-tab">{{.Panels.VerificationNotes}}</pre>
        <div class="toolbar">
          <button id="validateBtn">Validate</button>
          <button id="downloadBtn">Download {{.DownloadName}}</button>
          <button id="copyBtn" title="Copy Code">Copy</button>
        </div>
      </section>
    </main>
    <div id="toasts"></div>
    <script>
      (function () {
        const chat = document.getElementById('chatMessages');
        const input = document.getElementById('promptInput');
        const panes = {
          code: document.getElementById('code-tab'),
          variables: document.getElementById('variables-tab'),
          simulation: document.getElementById('simulation-tab'),
          verificationNotes: document.getElementById('notes-tab'),
        };
        const opts = { credentials: 'same-origin', headers: { 'Content-Type': 'application/json' } };

        function addMessage(m) {
          const div = document.createElement('div');
          div.className = 'message ' + m.type;
          div.textContent = m.content;
          chat.appendChild(div);
          chat.scrollTop = chat.scrollHeight;
        }
        function notify(n) {
          const div = document.createElement('div');
          div.className = 'toast ' + n.level;
          div.textContent = n.text;
          document.getElementById('toasts').appendChild(div);
          setTimeout(() => div.remove(), 4000);
        }
        function setPanels(p) {
          for (const k in panes) { panes[k].textContent = p[k]; }
        }
        function apply(view) {
          (view.messages || []).forEach(addMessage);
          (view.notifications || []).forEach(notify);
          if (view.panels) setPanels(view.panels);
        }
        async function call(method, path, body) {
          const res = await fetch(path, Object.assign({ method: method, body: body ? JSON.stringify(body) : undefined }, opts));
          const data = res.status === 204 ? {} : await res.json();
          if (!res.ok) throw new Error(data.error || res.statusText);
          return data;
        }

        async function send() {
          const prompt = input.value.trim();
          if (!prompt) return;
          input.value = '';
          addMessage({ type: 'user', content: prompt });
          try {
            const view = await call('POST', '/api/chat', { prompt: prompt });
            view.messages = (view.messages || []).slice(1);
            apply(view);
          } catch (e) {
            addMessage({ type: 'assistant', content: {{.OrchestratorDown}} });
            notify({ level: 'error', text: {{.OrchestratorDownNote}} });
          }
        }

        document.getElementById('sendPrompt').addEventListener('click', send);
        input.addEventListener('keydown', (e) => {
          if (e.key === 'Enter' && !e.shiftKey) { e.preventDefault(); send(); }
        });
        document.getElementById('validateBtn').addEventListener('click', async () => {
          try { apply(await call('POST', '/api/validate')); } catch (e) { notify({ level: 'error', text: e.message }); }
        });
        document.getElementById('downloadBtn').addEventListener('click', () => { window.location = '/api/download'; });
        document.getElementById('copyBtn').addEventListener('click', () => {
          navigator.clipboard.writeText(panes.code.textContent).then(() => notify({ level: 'success', text: 'Copied to clipboard!' }));
        });
        document.getElementById('clearBtn').addEventListener('click', async () => {
          await call('DELETE', '/api/history');
          chat.innerHTML = '';
        });
        document.getElementById('themeBtn').addEventListener('click', async () => {
          const next = document.documentElement.dataset.theme === 'dark' ? 'light' : 'dark';
          const res = await call('PUT', '/api/theme', { theme: next });
          document.documentElement.dataset.theme = res.theme;
        });
        document.querySelectorAll('.tab-button').forEach((tab) => {
          tab.addEventListener('click', () => {
            document.querySelectorAll('.tab-button').forEach((t) => t.classList.remove('active'));
            document.querySelectorAll('.tab-pane').forEach((p) => p.classList.remove('active'));
            tab.classList.add('active');
            document.getElementById(tab.dataset.tab + '-tab').classList.add('active');
          });
        });

        call('GET', '/api/state').then((state) => {
          state.transcript.forEach(addMessage);
          setPanels(state.panels);
          document.documentElement.dataset.theme = state.theme;
        });
      })();
    </script>
  </body>
</html>
`))

func RenderIndexHTML(data IndexPageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexPageTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	panels := copilot.EmptyPanels()
	if sess, ok := s.sessions.Peek(sid); ok {
		_, panels = sess.Snapshot()
	}
	theme, err := s.store.Theme(r.Context(), sid)
	if err != nil {
		theme = store.DefaultTheme
	}
	page, err := RenderIndexHTML(IndexPageData{
		Theme:                theme,
		DownloadName:         copilot.DownloadName,
		Panels:               panels,
		OrchestratorDown:     copilot.MsgOrchestratorDown,
		OrchestratorDownNote: copilot.NoteOrchestratorDown,
	})
	if err != nil {
		s.logger.Error("render index failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
