package viz

// The two page templates share a palette and layout so head and model
// views read as one tool. Percent signs in CSS are doubled for Sprintf.

const headTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Attention - %s</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', sans-serif;
            background: #0d1117;
            color: #c9d1d9;
            padding: 20px;
            line-height: 1.6;
        }
        .container { max-width: 1000px; margin: 0 auto; }
        h1 { font-size: 24px; margin-bottom: 6px; color: #58a6ff; }
        .subtitle { color: #8b949e; margin-bottom: 20px; font-size: 13px; }
        .controls {
            display: flex;
            gap: 15px;
            margin-bottom: 20px;
            align-items: center;
        }
        .controls label { font-size: 13px; color: #8b949e; }
        .controls select {
            background: #161b22;
            color: #c9d1d9;
            border: 1px solid #30363d;
            border-radius: 6px;
            padding: 5px 10px;
            font-size: 13px;
        }
        .chart-container {
            background: #161b22;
            border: 1px solid #30363d;
            border-radius: 6px;
            padding: 20px;
        }
        #tooltip {
            position: fixed;
            display: none;
            background: #21262d;
            border: 1px solid #30363d;
            border-radius: 6px;
            padding: 6px 10px;
            font-size: 12px;
            font-family: monospace;
            pointer-events: none;
            z-index: 10;
        }
        .footer {
            text-align: center;
            color: #8b949e;
            font-size: 12px;
            margin-top: 30px;
        }
        .footer a { color: #58a6ff; text-decoration: none; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Attention Head View</h1>
        <div class="subtitle">%s &mdash; &ldquo;%s&rdquo;</div>

        <div class="controls">
            <label for="layerSelect">Layer</label>
            <select id="layerSelect"></select>
            <label for="headSelect">Head</label>
            <select id="headSelect"></select>
        </div>

        <div class="chart-container">
            <canvas id="lines"></canvas>
        </div>
        <div id="tooltip"></div>

        <div class="footer">
            Left tokens attend to right tokens; line weight tracks attention. Hover a left token to isolate it.<br>
            <a href="/">New visualization</a> &middot; <a href="/unload">Unload model</a>
        </div>
    </div>

    <script>
        // Data from Go
        const tokens = %s;
        const attentions = %s;

        const canvas = document.getElementById('lines');
        const tooltip = document.getElementById('tooltip');
        const layerSelect = document.getElementById('layerSelect');
        const headSelect = document.getElementById('headSelect');

        for (let l = 0; l < attentions.length; l++) {
            const opt = document.createElement('option');
            opt.value = l;
            opt.textContent = 'Layer ' + l;
            layerSelect.appendChild(opt);
        }
        for (let h = 0; h < attentions[0].length; h++) {
            const opt = document.createElement('option');
            opt.value = h;
            opt.textContent = 'Head ' + h;
            headSelect.appendChild(opt);
        }

        const rowH = 26;
        const pad = 25;
        const labelW = 130;
        const colGap = 360;
        let hoverQ = -1;

        function rowY(i) {
            return pad + i * rowH + rowH / 2;
        }

        function draw() {
            const weights = attentions[layerSelect.value][headSelect.value];
            const n = tokens.length;
            const width = labelW * 2 + colGap;
            const height = pad * 2 + n * rowH;

            const dpr = window.devicePixelRatio || 1;
            canvas.style.width = width + 'px';
            canvas.style.height = height + 'px';
            canvas.width = width * dpr;
            canvas.height = height * dpr;
            const ctx = canvas.getContext('2d');
            ctx.scale(dpr, dpr);
            ctx.clearRect(0, 0, width, height);

            const leftX = labelW;
            const rightX = labelW + colGap;

            for (let q = 0; q < n; q++) {
                if (hoverQ >= 0 && q !== hoverQ) { continue; }
                for (let k = 0; k <= q; k++) {
                    const w = weights[q][k];
                    if (w === null || w < 0.01) { continue; }
                    ctx.strokeStyle = 'rgba(88, 166, 255, ' + Math.min(1, w) + ')';
                    ctx.lineWidth = 0.5 + 3 * Math.min(1, w);
                    ctx.beginPath();
                    ctx.moveTo(leftX + 8, rowY(q));
                    ctx.lineTo(rightX - 8, rowY(k));
                    ctx.stroke();
                }
            }

            ctx.font = '13px monospace';
            for (let i = 0; i < n; i++) {
                ctx.fillStyle = (i === hoverQ) ? '#58a6ff' : '#c9d1d9';
                ctx.textAlign = 'right';
                ctx.fillText(tokens[i], leftX, rowY(i) + 4);
                ctx.fillStyle = '#c9d1d9';
                ctx.textAlign = 'left';
                ctx.fillText(tokens[i], rightX, rowY(i) + 4);
            }
        }

        canvas.onmousemove = function(e) {
            const rect = canvas.getBoundingClientRect();
            const x = e.clientX - rect.left;
            const y = e.clientY - rect.top;
            const n = tokens.length;
            const row = Math.floor((y - pad) / rowH);

            let q = -1;
            if (x < labelW + 20 && row >= 0 && row < n) { q = row; }
            if (q !== hoverQ) {
                hoverQ = q;
                draw();
            }
            if (q < 0) {
                tooltip.style.display = 'none';
                return;
            }

            const weights = attentions[layerSelect.value][headSelect.value][q];
            let best = 0;
            for (let k = 1; k <= q; k++) {
                if ((weights[k] || 0) > (weights[best] || 0)) { best = k; }
            }
            const w = weights[best];
            tooltip.textContent = tokens[q] + ' attends most to ' + tokens[best] + ' (' + (w === null ? 'NaN' : w.toFixed(4)) + ')';
            tooltip.style.display = 'block';
            tooltip.style.left = (e.clientX + 12) + 'px';
            tooltip.style.top = (e.clientY + 12) + 'px';
        };
        canvas.onmouseleave = function() {
            hoverQ = -1;
            draw();
            tooltip.style.display = 'none';
        };

        layerSelect.onchange = draw;
        headSelect.onchange = draw;
        window.onload = draw;
    </script>
</body>
</html>`

const modelTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Attention - %s</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', sans-serif;
            background: #0d1117;
            color: #c9d1d9;
            padding: 20px;
            line-height: 1.6;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { font-size: 24px; margin-bottom: 6px; color: #58a6ff; }
        .subtitle { color: #8b949e; margin-bottom: 20px; font-size: 13px; }
        .stats {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
            gap: 15px;
            margin-bottom: 25px;
        }
        .stat-card {
            background: #161b22;
            border: 1px solid #30363d;
            border-radius: 6px;
            padding: 12px;
        }
        .stat-label {
            font-size: 12px;
            color: #8b949e;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        .stat-value { font-size: 22px; font-weight: 600; color: #58a6ff; }
        .layer-row { margin-bottom: 25px; }
        .layer-title { font-size: 15px; font-weight: 600; margin-bottom: 10px; }
        .heads { display: flex; flex-wrap: wrap; gap: 10px; }
        .head-cell {
            background: #161b22;
            border: 1px solid #30363d;
            border-radius: 6px;
            padding: 8px;
            text-align: center;
        }
        .head-cell .label { font-size: 11px; color: #8b949e; margin-top: 4px; }
        .footer {
            text-align: center;
            color: #8b949e;
            font-size: 12px;
            margin-top: 30px;
        }
        .footer a { color: #58a6ff; text-decoration: none; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Attention Model View</h1>
        <div class="subtitle">%s &mdash; &ldquo;%s&rdquo;</div>

        <div class="stats">
            <div class="stat-card">
                <div class="stat-label">Layers</div>
                <div class="stat-value">%d</div>
            </div>
            <div class="stat-card">
                <div class="stat-label">Heads per Layer</div>
                <div class="stat-value">%d</div>
            </div>
            <div class="stat-card">
                <div class="stat-label">Tokens</div>
                <div class="stat-value">%d</div>
            </div>
        </div>

        <div id="grid"></div>

        <div class="footer">
            Every head of every layer, brightest cells carry the most weight.<br>
            <a href="/">New visualization</a> &middot; <a href="/unload">Unload model</a>
        </div>
    </div>

    <script>
        // Data from Go
        const tokens = %s;
        const attentions = %s;

        const thumb = 120;

        function heatColor(w) {
            if (w === null) { return '#f85149'; }
            const v = Math.max(0, Math.min(1, w));
            const r = Math.round(13 + v * 75);
            const g = Math.round(17 + v * 149);
            const b = Math.round(23 + v * 232);
            return 'rgb(' + r + ',' + g + ',' + b + ')';
        }

        function drawThumb(canvas, weights) {
            const n = tokens.length;
            const dpr = window.devicePixelRatio || 1;
            canvas.style.width = thumb + 'px';
            canvas.style.height = thumb + 'px';
            canvas.width = thumb * dpr;
            canvas.height = thumb * dpr;
            const ctx = canvas.getContext('2d');
            ctx.scale(dpr, dpr);
            const cell = thumb / n;
            for (let q = 0; q < n; q++) {
                for (let k = 0; k < n; k++) {
                    ctx.fillStyle = heatColor(weights[q][k]);
                    ctx.fillRect(k * cell, q * cell, Math.ceil(cell), Math.ceil(cell));
                }
            }
        }

        window.onload = function() {
            const grid = document.getElementById('grid');
            for (let l = 0; l < attentions.length; l++) {
                const row = document.createElement('div');
                row.className = 'layer-row';
                const title = document.createElement('div');
                title.className = 'layer-title';
                title.textContent = 'Layer ' + l;
                row.appendChild(title);
                const heads = document.createElement('div');
                heads.className = 'heads';
                for (let h = 0; h < attentions[l].length; h++) {
                    const cell = document.createElement('div');
                    cell.className = 'head-cell';
                    const canvas = document.createElement('canvas');
                    drawThumb(canvas, attentions[l][h]);
                    const label = document.createElement('div');
                    label.className = 'label';
                    label.textContent = 'Head ' + h;
                    cell.appendChild(canvas);
                    cell.appendChild(label);
                    heads.appendChild(cell);
                }
                row.appendChild(heads);
                grid.appendChild(row);
            }
        };
    </script>
</body>
</html>`
