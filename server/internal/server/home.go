package server

import "net/http"

func (s *S) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(homePage))
}

const homePage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Transformer Zoo</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', sans-serif;
            background: #0d1117;
            color: #c9d1d9;
            padding: 40px 20px;
            line-height: 1.6;
        }
        .container { max-width: 640px; margin: 0 auto; }
        h1 { font-size: 28px; margin-bottom: 8px; color: #58a6ff; }
        .subtitle { color: #8b949e; margin-bottom: 30px; font-size: 14px; }
        form {
            background: #161b22;
            border: 1px solid #30363d;
            border-radius: 6px;
            padding: 25px;
        }
        label { display: block; font-size: 13px; color: #8b949e; margin-bottom: 5px; }
        input[type=text], textarea, select {
            width: 100%;
            background: #0d1117;
            color: #c9d1d9;
            border: 1px solid #30363d;
            border-radius: 6px;
            padding: 8px 12px;
            font-size: 14px;
            margin-bottom: 18px;
            font-family: inherit;
        }
        textarea { height: 90px; resize: vertical; }
        button {
            background: #238636;
            color: #fff;
            border: none;
            border-radius: 6px;
            padding: 10px 20px;
            font-size: 14px;
            font-weight: 600;
            cursor: pointer;
        }
        button:hover { background: #2ea043; }
        .footer { text-align: center; color: #8b949e; font-size: 12px; margin-top: 30px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Transformer Zoo</h1>
        <div class="subtitle">Run a prompt through a model and explore its attention patterns.</div>

        <form method="post" action="/visualize">
            <label for="model_name">Model</label>
            <input type="text" id="model_name" name="model_name" placeholder="zoo/tiny-gpt2" required>

            <label for="input_text">Prompt</label>
            <textarea id="input_text" name="input_text" placeholder="The quick brown fox..." required></textarea>

            <label for="view_type">View</label>
            <select id="view_type" name="view_type">
                <option value="head">Head view</option>
                <option value="model">Model view</option>
            </select>

            <button type="submit">Visualize</button>
        </form>

        <div class="footer">Long prompts are truncated. You get a shareable link back.</div>
    </div>
</body>
</html>`
