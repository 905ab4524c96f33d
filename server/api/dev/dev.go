// Package dev 提供 Unboxlab 的「內部 Dev Panel」HTTP endpoints。
//
// 目的（ explain the why ）：
//   - 給數學家 / 後端在開發期快速驗證：指定箱子、道數、Seed / Snap，然後執行 Open 或 Sim。
//   - 支援可回放（replay）：把 Snapshot（Snap）以字串形式在前端顯示，並可貼回後端做 Restore。
//
// 注意（ contract ）：
//   - 這不是 production API；它偏向 debug / tooling，行為允許更寬鬆，但仍需維持 deterministic concludes。
//   - 這裡的錯誤處理走 `httperr.Errs`（以 errs.Warn/errs.Fatal 對應 HTTP response）。
//   - Seed/Snap 的互斥與優先級由前端 + 後端共同保證（Snap takes precedence）。
package dev

import (
	"crypto/rand"
	"embed"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/unboxlab"
	"github.com/zintix-labs/unboxlab/catalog"
	"github.com/zintix-labs/unboxlab/corefmt"
	"github.com/zintix-labs/unboxlab/dto"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/recorder"
	"github.com/zintix-labs/unboxlab/server/httperr"
	"github.com/zintix-labs/unboxlab/server/netsvr"
	"github.com/zintix-labs/unboxlab/server/svrcfg"
	"github.com/zintix-labs/unboxlab/spec"
	"github.com/zintix-labs/unboxlab/stats"
)

// devRequest 是 Dev Panel 的「輸入 payload」。
//
// 兼容性（backward compatibility）：
//   - 同時保留 `opens` 與舊欄位 `rounds`。
//   - `bid` 與 `box` 兩者擇一即可；若兩者同時存在，後端會優先使用 bid 做解析。
//
// Seed / Snap：
//   - Seed（int64 string）用於 deterministic 起始；若為空字串則自動生成（crypto/rand）。
//   - Snap（base64url string）代表 core snapshot；若提供 Snap，則後端以 Snap Restore 為準（Snap precedence）。
//
// 注意：
//   - 這個 struct 是 API 邊界用的 DTO；不要把它滲透到 resolve / reel domain。
type devRequest struct {
	BID    int64  `json:"bid"`
	Box    string `json:"box"`
	Lanes  int    `json:"lanes"`
	Opens  int    `json:"opens"`
	Rounds int    `json:"rounds"`
	Seed   string `json:"seed"`
	Snap   string `json:"snap"`
	Fast   bool   `json:"fast"`
}

// opens() 將 opens/rounds 做兼容合併：優先 opens，其次 rounds；若都未提供則回 0。
func (r devRequest) opens() int {
	if r.Opens > 0 {
		return r.Opens
	}
	if r.Rounds > 0 {
		return r.Rounds
	}
	return 0
}

// lanes() 缺省道數視為 1。
func (r devRequest) lanes() int {
	if r.Lanes == 0 {
		return 1
	}
	return r.Lanes
}

// Register 註冊 Dev Panel 的 routes。
//
// Routes：
//   - GET  /dev       ：Dev Panel HTML（內嵌 JS）。
//   - GET  /dev/meta  ：回傳 Catalog summary（供前端下拉選單：箱子列表）。
//   - POST /dev/open  ：執行 N 次展示開箱並回傳每次結果（含 start_b64u/after_b64u）。
//   - POST /dev/sim   ：執行 N 次 Sim 並回傳統計報表（不回傳逐次 results）。
//
// 依賴（dependency）：
//   - 需要 cfg.Unboxlab 已被上層組裝完成並注入；否則會回 errs.Fatal。
func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) {
	svr.Get("/dev", devPage)
	svr.Get("/favicon.svg", favicon)
	svr.Get("/dev/meta", devMeta(cfg))
	svr.Post("/dev/open", devOpen(cfg))
	svr.Post("/dev/sim", devSim(cfg))
}

// devPageHTML 是內嵌的 Dev Panel UI。
//
// UI 行為（contract）：
//   - Box：由 /dev/meta 動態載入。
//   - Seed/Snap 互斥：
//   - Snap 非空 → Seed 會被清空並 disable。
//   - Seed 非空 → Snap 會被清空並 disable。
//   - Snap takes precedence（後端也會以 Snap 為準）。
//   - Opens：
//   - Open：前端會 cap 在 5,000 以避免回傳 payload 過大。
//   - Sim ：前端會 cap 在 3,000,000 以避免長時間阻塞（仍屬 dev tooling）。
//
// 回傳呈現：
//   - Open：Summary 區顯示整體統計；Open Results 展開後可點選查看 raw OpenResult JSON。
//   - Sim ：僅顯示統計（statistic/stats/stat），不顯示逐次 results。
const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <link rel="icon" type="image/svg+xml" href="/favicon.svg" />
  <title>Unboxlab Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; box-shadow:0 12px 50px rgba(0,0,0,0.35); }
    h1 { margin: 0 0 16px; font-size: 22px; letter-spacing: 0.3px; }
    .grid { display:grid; grid-template-columns: repeat(auto-fit, minmax(180px,1fr)); gap:12px; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:10px 12px; font-size:14px; }
    input:focus, select:focus { outline:1px solid #38bdf8; border-color:#38bdf8; }
    .actions { position:relative; display:flex; gap:10px; align-items:center; justify-content:flex-end; margin: 8px 0 14px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:10px 14px; font-weight:600; letter-spacing:0.2px; }
    #btn-open { background:#38bdf8; color:#0b1224; }
    #btn-sim { background:#22c55e; color:#0b1224; }
    #btn-clear { background:#1f2937; color:#e2e8f0; border:1px solid #334155; }
    button:disabled { opacity:0.6; cursor:not-allowed; }
    input:disabled, select:disabled {
      opacity: 0.55;
      cursor: not-allowed;
      filter: grayscale(0.25);
    }
    label.is-disabled { opacity: 0.55; }
    label.is-disabled input, label.is-disabled select { pointer-events: none; }
    .hint { font-size: 12px; color:#94a3b8; margin-top:4px; }
    .info { position:absolute; left:50%; transform:translateX(-50%); font-size:13px; color:#94a3b8; }
    .info.warn { color:#f87171; font-weight:600; }
    #summary { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:120px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; margin-bottom:12px; }
    #opensBox { border:1px solid #1f2737; border-radius:12px; padding:10px; background:#0b1224; margin-bottom:12px; max-height: calc(60vh - 56px); overflow:auto; }
    #openList { max-height: calc(60vh - 136px); overflow:auto; }
    .open-item { display:grid; grid-template-columns: minmax(3.5em, max-content) minmax(100px, max-content) max-content; align-items:center; column-gap:8px; width:100%; text-align:left; background:none; border:none; padding:6px 10px; color:#e2e8f0; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; cursor:pointer; border-left: 4px solid transparent; }
    .open-item:hover { background:#1f2937; border-left-color:#38bdf8; }
    .open-item.selected { background:#2563eb; border-left-color:#60a5fa; }
    .open-index { color:#94a3b8; text-align:right; justify-self:end; min-width:3.5em; font-variant-numeric: tabular-nums; }
    .open-payout { text-align:right; justify-self:end; font-variant-numeric: tabular-nums; }
    .open-payout.zero { color:#94a3b8; }
    .open-tier { text-align:right; justify-self:end; }
    .tier-hot { color:#f59e0b; font-weight:600; }
    #detail { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:220px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; display:none; }
    .note { font-size:12px; color:#94a3b8; margin-top:4px; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>Unboxlab Dev Panel</h1>
    <div class="grid">
      <label>Box
        <select id="box"></select>
      </label>
      <label>Lanes
        <select id="lanes">
          <option value="1">1</option>
          <option value="2">2</option>
          <option value="3">3</option>
          <option value="4">4</option>
        </select>
      </label>
      <label>Seed (int64)
   <input id="seed" type="text" inputmode="numeric" placeholder="Empty = auto" />
      </label>
      <label>Snap(base64url)
        <input id="snap" type="text" placeholder="Paste snap (base64url)" />
      </label>
      <label>Opens
        <input id="opens" type="number" min="1" max="3000000" value="1" />
      </label>
    </div>
    <div class="actions">
      <button id="btn-open">Open</button>
      <button id="btn-sim">Sim</button>
      <button id="btn-clear">Clear</button>
      <span class="info" id="info"></span>
    </div>

    <pre id="summary"></pre>

    <details id="opensBox" style="display:none;">
      <summary>Open Results</summary>
      <div id="openList"></div>
    </details>

    <pre id="detail" style="display:none;"></pre>
  </div>
<script>
const state = { meta: null, results: [] };
const boxSel = document.getElementById('box');
const lanesSel = document.getElementById('lanes');
const seedInput = document.getElementById('seed');
const snapInput = document.getElementById('snap');
const opensInput = document.getElementById('opens');
const summary = document.getElementById('summary');
const opensBox = document.getElementById('opensBox');
const openList = document.getElementById('openList');
const detail = document.getElementById('detail');
const infoEl = document.getElementById('info');
const btnOpen = document.getElementById('btn-open');
const btnSim = document.getElementById('btn-sim');
const btnClear = document.getElementById('btn-clear');
const numberFormatter = new Intl.NumberFormat('en-US');

function setDisabled(el, disabled) {
  el.disabled = disabled;
  const label = el.closest('label');
  if (label) label.classList.toggle('is-disabled', disabled);
}

function syncInputLocks() {
  const seedValue = seedInput.value.trim();
  const snapValue = snapInput.value.trim();

  if (snapValue !== '') {
    seedInput.value = '';
    setDisabled(seedInput, true);
    setDisabled(snapInput, false);
    return;
  }
  if (seedValue !== '') {
    snapInput.value = '';
    setDisabled(snapInput, true);
    setDisabled(seedInput, false);
    return;
  }
  setDisabled(seedInput, false);
  setDisabled(snapInput, false);
}

function formatPayout(value) {
  if (typeof value !== 'number' || !Number.isFinite(value)) return '0';
  return numberFormatter.format(value);
}

async function loadMeta() {
  try {
    const res = await fetch('/dev/meta');
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const boxes = Array.isArray(data) ? data : (data.boxes || data.summary || []);
    state.meta = { boxes };
    boxSel.innerHTML = '';
    state.meta.boxes.forEach((b) => {
      const opt = document.createElement('option');
      const bid = b.bid ?? b.id ?? b.BID;
      opt.value = bid != null ? String(bid) : (b.name || '');
      opt.textContent = (b.name || String(opt.value)) + ' (#' + bid + ')';
      opt.dataset.name = b.name || '';
      boxSel.appendChild(opt);
    });
    summary.textContent = '';
    opensBox.style.display = 'none';
    detail.style.display = 'none';
    setInfo('', false);
  } catch (err) {
    summary.textContent = 'Failed to load meta: ' + err.message;
  }
}

function setInfo(text, isWarn) {
  infoEl.textContent = text;
  if (isWarn) {
    infoEl.classList.add('warn');
  } else {
    infoEl.classList.remove('warn');
  }
}

function setLoading(isLoading) {
  btnOpen.disabled = isLoading;
  btnSim.disabled = isLoading;
  if (isLoading) {
    setInfo('Running…', false);
  }
}

function clearSelection() {
  summary.textContent = '';
  opensBox.style.display = 'none';
  detail.style.display = 'none';
  openList.innerHTML = '';
  state.results = [];
}

function renderDetail(index) {
  if (!state.results || !state.results[index]) {
    detail.textContent = '';
    detail.style.display = 'none';
    return;
  }
  const result = state.results[index];
  detail.textContent = JSON.stringify(result, null, 2);
  detail.style.display = 'block';

  // highlight selected
  const buttons = openList.querySelectorAll('.open-item');
  buttons.forEach((btn, idx) => {
    if (idx === index) {
      btn.classList.add('selected');
    } else {
      btn.classList.remove('selected');
    }
  });
}

function basePayload() {
  const seed = seedInput.value.trim();
  const snap = snapInput.value.trim();
  const payload = {
    lanes: Number(lanesSel.value) || 1,
  };
  const bid = Number(boxSel.value);
  if (Number.isFinite(bid)) {
    payload.bid = bid;
  }
  const opt = boxSel.selectedOptions[0];
  if (opt && opt.dataset.name) {
    payload.box = opt.dataset.name;
  }
  if (snap) {
    payload.snap = snap;
  } else if (seed) {
    payload.seed = seed;
  }
  return payload;
}

async function runOpen() {
  setLoading(true);
  clearSelection();
  const inputOpens = Number(opensInput.value) || 1;
  const safeOpens = Math.min(inputOpens, 5000);
  const payload = basePayload();
  payload.opens = safeOpens;
  payload.rounds = safeOpens;
  try {
    const res = await fetch('/dev/open', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();

    const summaryObj = { ...data };
    delete summaryObj.results;
    summary.textContent = JSON.stringify(summaryObj, null, 2);

    if (inputOpens > 5000) {
      setInfo('Open records are capped at 5,000 opens.', true);
    } else {
      setInfo('', false);
    }

    const results = Array.isArray(data.results) ? data.results : [];
    if (results.length > 0) {
      state.results = results;
      openList.innerHTML = '';
      results.forEach((dto, idx) => {
        const lanes = Array.isArray(dto && dto.lanes) ? dto.lanes : [];
        const hot = lanes.some((l) => l.tier === 'Epic' || l.tier === 'Legendary');
        const payout = (dto && typeof dto.total_payout === 'number') ? dto.total_payout : 0;
        const payoutText = formatPayout(payout);
        const btn = document.createElement('button');
        btn.type = 'button';
        btn.className = 'open-item';
        const idxSpan = document.createElement('span');
        idxSpan.className = 'open-index';
        idxSpan.textContent = '#' + (idx + 1);
        const paySpan = document.createElement('span');
        paySpan.className = 'open-payout' + (payout === 0 ? ' zero' : '');
        paySpan.textContent = payoutText;
        const tierSpan = document.createElement('span');
        tierSpan.className = 'open-tier';
        const hotSpan = document.createElement('span');
        hotSpan.textContent = hot ? 'rare drop' : '';
        if (hot) {
          hotSpan.className = 'tier-hot';
        }
        tierSpan.appendChild(hotSpan);
        btn.appendChild(idxSpan);
        btn.appendChild(paySpan);
        btn.appendChild(tierSpan);
        btn.title = 'Open ' + (idx + 1) + ' | payout=' + payoutText + (hot ? ' | rare drop' : '');
        btn.addEventListener('click', () => {
          renderDetail(idx);
        });
        openList.appendChild(btn);
      });
      opensBox.style.display = 'block';
      renderDetail(0);
    } else {
      opensBox.style.display = 'none';
      detail.style.display = 'none';
      state.results = [];
    }
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

async function runSim() {
  setLoading(true);
  clearSelection();
  const inputOpens = Number(opensInput.value) || 1;
  const safeOpens = Math.min(inputOpens, 3000000);
  const payload = basePayload();
  payload.opens = safeOpens;
  payload.rounds = safeOpens;
  try {
    const res = await fetch('/dev/sim', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const summaryObj = data.statistic || data.stats || data.stat || data;
    summary.textContent = JSON.stringify(summaryObj, null, 2);
    if (inputOpens > 3000000) {
      setInfo('Sim statistics are capped at 3,000,000 opens.', true);
    } else {
      setInfo('', false);
    }
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

btnOpen.addEventListener('click', runOpen);
btnSim.addEventListener('click', runSim);
btnClear.addEventListener('click', () => {
  clearSelection();
  setInfo('', false);
});
seedInput.addEventListener('input', syncInputLocks);
snapInput.addEventListener('input', syncInputLocks);

syncInputLocks();
loadMeta();
</script>
</body>
</html>`

// devPage 回傳內嵌 HTML（single page）。這裡不做 templating，降低 dev tool 維護成本。
func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(devPageHTML))
}

// favicon 提供 Dev Panel 的 favicon.svg。
func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(faviconSVG))
}

// devMeta 回傳 Catalog summary（JSON）。
//
// 前端依賴欄位：
//   - bid / id / BID
//   - name
func devMeta(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lab, ok := getUnboxlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("unboxlab is required"))
			return
		}
		sum, err := lab.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}

// devOpenReport 回傳給前端的開箱報告：整體欄位 + 逐次 results。
type devOpenReport struct {
	BoxName     string           `json:"box"`
	BoxId       spec.BID         `json:"bid"`
	Seed        int64            `json:"seed"`
	Lanes       int              `json:"lanes"`
	Opens       int              `json:"opens"`
	TotalPayout float64          `json:"total_payout"`
	Results     []dto.OpenResult `json:"results"`
}

// devOpen 執行「可回放」的展示開箱。
//
// 流程（high level）：
//  1. decode devRequest（JSON body）
//  2. resolve box（bid/name）→ catalog.Summary
//  3. resolve seed（empty = auto）
//  4. 建立 Opener → 若 snap 非空先 RestoreCore（Snap precedence）
//  5. 連開 N 次（demo 路徑），收集每次 OpenResult
func devOpen(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		lab, ok := getUnboxlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("unboxlab is required"))
			return
		}
		sum, err := resolveSummary(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		opens := req.opens()
		if opens < 1 {
			httperr.Errs(w, errs.NewWarn("opens is required"))
			return
		}
		if opens > 5000 {
			opens = 5000
		}
		lanes := req.lanes()
		if lanes < 1 || lanes > 4 {
			httperr.Errs(w, errs.NewWarn("lanes must be between 1 and 4"))
			return
		}
		seed, err := resolveSeed(req.Seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		opener, err := lab.NewOpenerWithSeed(sum.BID, seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		if snap := strings.TrimSpace(req.Snap); snap != "" {
			raw, derr := corefmt.DecodeBase64URL(snap)
			if derr != nil {
				httperr.Errs(w, errs.NewWarn("invalid snap: "+derr.Error()))
				return
			}
			if rerr := opener.RestoreCore(raw); rerr != nil {
				httperr.Errs(w, rerr)
				return
			}
		}
		report := devOpenReport{
			BoxName: sum.Name,
			BoxId:   sum.BID,
			Seed:    seed,
			Lanes:   lanes,
			Opens:   opens,
			Results: make([]dto.OpenResult, 0, opens),
		}
		or := &dto.OpenRequest{BoxId: sum.BID, Lanes: lanes, Demo: true, Fast: req.Fast}
		for i := 0; i < opens; i++ {
			res, oerr := opener.Open(or)
			if oerr != nil {
				httperr.Errs(w, oerr)
				return
			}
			report.TotalPayout += res.TotalPayout
			report.Results = append(report.Results, res)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// devSim 執行統計模擬（simulation）。
//
// 和 devOpen 的差異：
//   - devSim 不回逐次 results（降低 response size），僅回統計報表（statistic）。
//   - 一樣支援 snap：先 RestoreCore 再跑判定熱路徑。
func devSim(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		lab, ok := getUnboxlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("unboxlab is required"))
			return
		}
		sum, err := resolveSummary(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		opens := req.opens()
		if opens < 1 {
			httperr.Errs(w, errs.NewWarn("opens is required"))
			return
		}
		if opens > 3000000 {
			opens = 3000000
		}
		lanes := req.lanes()
		if lanes < 1 || lanes > 4 {
			httperr.Errs(w, errs.NewWarn("lanes must be between 1 and 4"))
			return
		}
		seed, err := resolveSeed(req.Seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		opener, err := lab.NewOpenerWithSeed(sum.BID, seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		if snap := strings.TrimSpace(req.Snap); snap != "" {
			raw, derr := corefmt.DecodeBase64URL(snap)
			if derr != nil {
				httperr.Errs(w, errs.NewWarn("invalid snap: "+derr.Error()))
				return
			}
			if rerr := opener.RestoreCore(raw); rerr != nil {
				httperr.Errs(w, rerr)
				return
			}
		}
		rec, err := recorder.NewOpenRecorder(sum.Name, sum.BID, opener.Denom(), lanes)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		for i := 0; i < opens; i++ {
			results, oerr := opener.OpenInternal(lanes)
			if oerr != nil {
				httperr.Errs(w, oerr)
				return
			}
			rec.Record(results)
		}
		st := rec.Done()
		st.Done()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Statistic *stats.StatReport `json:"statistic"`
			Seed      int64             `json:"seed"`
		}{Statistic: st, Seed: seed})
	}
}

// getUnboxlab 從 server config 取得已組裝的 Unboxlab instance。
// Dev routes 不負責組裝（assembler），只負責使用（runtime entry）。
func getUnboxlab(cfg *svrcfg.SvrCfg) (*unboxlab.Unboxlab, bool) {
	if cfg == nil || cfg.Unboxlab == nil {
		return nil, false
	}
	return cfg.Unboxlab, true
}

// resolveSummary 解析使用者指定的箱子：
//   - 若 bid > 0：以 bid 精準匹配（fast path）。
//   - 否則若 box(name) 非空：先做 case-insensitive name 匹配；也允許把 box 當作數字字串解析成 bid。
//
// 回傳 catalog.Summary 作為後續開箱 / 模擬的依據。
func resolveSummary(lab *unboxlab.Unboxlab, req *devRequest) (catalog.Summary, error) {
	sums, err := lab.Summary()
	if err != nil {
		return catalog.Summary{}, err
	}
	if req.BID > 0 {
		bid := spec.BID(req.BID)
		for _, s := range sums {
			if s.BID == bid {
				return s, nil
			}
		}
		return catalog.Summary{}, errs.NewWarn("bid not found")
	}
	name := strings.TrimSpace(req.Box)
	if name != "" {
		for _, s := range sums {
			if strings.EqualFold(s.Name, name) {
				return s, nil
			}
		}
		if bid, err := strconv.ParseUint(name, 10, 32); err == nil {
			sb := spec.BID(bid)
			for _, s := range sums {
				if s.BID == sb {
					return s, nil
				}
			}
		}
		return catalog.Summary{}, errs.NewWarn("box not found")
	}
	return catalog.Summary{}, errs.NewWarn("box is required")
}

// resolveSeed 解析 seed（int64 string）。
//   - 空字串：自動生成 seed（crypto/rand），方便快速測試。
//   - 非空：必須為合法 int64。
func resolveSeed(seed string) (int64, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return randomSeed()
	}
	v, err := strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return 0, errs.NewWarn("seed must be int64")
	}
	return v, nil
}

// randomSeed 使用 crypto/rand 產生 [0, MaxInt64) 的種子。
// 目的：避免 math/rand 的 deterministic 來源造成 seed 品質偏差（dev tool 也要可依賴）。
func randomSeed() (int64, error) {
	rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.NewWarn("seed generate failed")
	}
	return rnd.Int64(), nil
}

//go:embed favicon.svg
var faviconSVG string

// keep embed imported even if only used for directives
var _ embed.FS
