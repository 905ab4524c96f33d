package index

import (
	"net/http"
)

// 主頁只做導覽 不做任何業務
const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>unboxlab</title></head>
<body style="font-family:monospace;background:#111;color:#ddd;padding:2rem">
<h1>unboxlab</h1>
<p>loot box probability lab</p>
<ul>
<li><a href="/dev" style="color:#8cf">/dev</a> — dev panel</li>
<li><a href="/v1/boxes" style="color:#8cf">/v1/boxes</a> — box catalog</li>
<li>/v1/open — open a box (GET/POST)</li>
<li>/v1/demo — demo spin, no outcomes accepted (GET/POST)</li>
<li>/v1/sim — single worker simulation (GET/POST)</li>
<li>/v1/simworker — multi worker simulation (GET/POST)</li>
<li>/v1/simbycfg — simulate with inline box setting (POST)</li>
<li>/v1/stat — rebuild stats from raw lane records (POST)</li>
<li><a href="/v1/metrics" style="color:#8cf">/v1/metrics</a> — opener pool metrics</li>
</ul>
</body>
</html>`

func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}
