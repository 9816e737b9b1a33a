package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"matchbook/internal/cache"
	"matchbook/internal/engine"
	"matchbook/internal/metrics"
	"matchbook/internal/ws"
)

// AdminHandler provides admin API endpoints.
type AdminHandler struct {
	books      *engine.Manager
	wsHub      *ws.Hub
	redisCache *cache.RedisCache
	metrics    *metrics.Metrics
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(books *engine.Manager, wsHub *ws.Hub, redisCache *cache.RedisCache, m *metrics.Metrics) *AdminHandler {
	return &AdminHandler{
		books:      books,
		wsHub:      wsHub,
		redisCache: redisCache,
		metrics:    m,
	}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	{
		admin.GET("/health", h.Health)
		admin.GET("/stats", h.Stats)
		admin.GET("/books", h.BookStats)
		admin.GET("/connections", h.ConnectionStats)
		admin.GET("/dashboard", h.Dashboard)
	}
}

// AdminHealthResponse represents health check response for admin.
type AdminHealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    time.Duration     `json:"uptime"`
	Services  map[string]string `json:"services"`
	System    SystemInfo        `json:"system"`
}

// SystemInfo contains system information.
type SystemInfo struct {
	GoVersion  string  `json:"go_version"`
	GoRoutines int     `json:"goroutines"`
	MemoryMB   float64 `json:"memory_mb"`
}

// Health returns the health status of the system.
func (h *AdminHandler) Health(c *gin.Context) {
	services := make(map[string]string)

	if h.redisCache != nil {
		services["redis"] = "healthy"
	} else {
		services["redis"] = "not configured"
	}

	symbols := h.books.ListSymbols()
	if len(symbols) > 0 {
		services["books"] = "healthy"
	} else {
		services["books"] = "empty"
	}

	connections := 0
	if h.wsHub != nil {
		connections = h.wsHub.TotalClientCount()
	}
	if connections > 0 {
		services["websocket"] = "healthy"
	} else {
		services["websocket"] = "no connections"
	}

	status := "healthy"
	for _, v := range services {
		if v != "healthy" && v != "no connections" && v != "empty" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, AdminHealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime),
		Services:  services,
		System: SystemInfo{
			GoVersion:  runtime.Version(),
			GoRoutines: runtime.NumGoroutine(),
			MemoryMB:   float64(getMemoryUsage()) / 1024 / 1024,
		},
	})
}

// SystemStats represents system-level statistics.
type SystemStats struct {
	GoRoutines  int    `json:"goroutines"`
	MemoryUsage uint64 `json:"memory_usage_bytes"`
	Connections int    `json:"websocket_connections"`
	Books       int    `json:"books"`
}

// Stats returns a combined statistics view.
func (h *AdminHandler) Stats(c *gin.Context) {
	connections := 0
	if h.wsHub != nil {
		connections = h.wsHub.TotalClientCount()
	}

	symbols := h.books.ListSymbols()
	totalOrders := 0
	for _, symbol := range symbols {
		totalOrders += h.books.Size(symbol)
	}

	c.JSON(http.StatusOK, gin.H{
		"system": SystemStats{
			GoRoutines:  runtime.NumGoroutine(),
			MemoryUsage: getMemoryUsage(),
			Connections: connections,
			Books:       h.books.BookCount(),
		},
		"books": gin.H{
			"total_symbols": len(symbols),
			"total_orders":  totalOrders,
			"symbols":       symbols,
		},
	})
}

// SymbolStats represents statistics for one book.
type SymbolStats struct {
	Symbol        string  `json:"symbol"`
	OrderCount    int     `json:"order_count"`
	BestBid       int64   `json:"best_bid"`
	BestBidOk     bool    `json:"best_bid_ok"`
	BestAsk       int64   `json:"best_ask"`
	BestAskOk     bool    `json:"best_ask_ok"`
	Spread        int64   `json:"spread"`
	SpreadPercent float64 `json:"spread_percent"`
	BidLevels     int     `json:"bid_levels"`
	AskLevels     int     `json:"ask_levels"`
}

// BookStats returns per-symbol book statistics.
func (h *AdminHandler) BookStats(c *gin.Context) {
	symbols := h.books.ListSymbols()
	stats := make([]SymbolStats, 0, len(symbols))

	for _, symbol := range symbols {
		bid, bidOk := h.books.BestBid(symbol)
		ask, askOk := h.books.BestAsk(symbol)
		bids, asks := h.books.Depth(symbol, 0)

		s := SymbolStats{
			Symbol:     symbol,
			OrderCount: h.books.Size(symbol),
			BestBid:    bid,
			BestBidOk:  bidOk,
			BestAsk:    ask,
			BestAskOk:  askOk,
			BidLevels:  len(bids),
			AskLevels:  len(asks),
		}

		if bidOk && askOk {
			s.Spread = ask - bid
			s.SpreadPercent = (float64(s.Spread) / float64(ask)) * 100
		}

		stats = append(stats, s)
	}

	c.JSON(http.StatusOK, gin.H{
		"symbols":       stats,
		"total_symbols": len(symbols),
	})
}

// ConnectionStats returns WebSocket connection statistics.
func (h *AdminHandler) ConnectionStats(c *gin.Context) {
	if h.wsHub == nil {
		c.JSON(http.StatusOK, gin.H{"total_connections": 0, "symbols": []string{}})
		return
	}

	symbols := h.wsHub.Symbols()
	perSymbol := make(map[string]int, len(symbols))
	for _, symbol := range symbols {
		perSymbol[symbol] = h.wsHub.ClientCount(symbol)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections":  h.wsHub.TotalClientCount(),
		"symbol_connections": perSymbol,
	})
}

// Dashboard returns an HTML dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	c.Header("Content-Type", "text/html")
	c.String(http.StatusOK, DashboardHTML)
}

// Global start time for uptime calculation
var startTime = time.Now()

// getMemoryUsage returns current memory usage in bytes.
func getMemoryUsage() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

// DashboardHTML is the admin dashboard HTML template.
const DashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Matchbook Admin Dashboard</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #1a1a2e; color: #eee; }
        .header { background: #16213e; padding: 20px; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { color: #e94560; }
        .status { padding: 5px 15px; border-radius: 20px; font-size: 14px; }
        .status.healthy { background: #27ae60; }
        .status.degraded { background: #f39c12; }
        .container { padding: 20px; max-width: 1400px; margin: 0 auto; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(300px, 1fr)); gap: 20px; margin-bottom: 20px; }
        .card { background: #16213e; border-radius: 10px; padding: 20px; }
        .card h2 { color: #e94560; margin-bottom: 15px; font-size: 18px; border-bottom: 1px solid #0f3460; padding-bottom: 10px; }
        .stat { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid #0f3460; }
        .stat:last-child { border-bottom: none; }
        .stat-value { color: #4ecca3; font-weight: bold; }
        .symbol-table { width: 100%; border-collapse: collapse; }
        .symbol-table th, .symbol-table td { padding: 10px; text-align: left; border-bottom: 1px solid #0f3460; }
        .symbol-table th { color: #e94560; }
        .symbol-table tr:hover { background: #0f3460; }
        .positive { color: #27ae60; }
        .negative { color: #e74c3c; }
        .refresh-btn { background: #e94560; color: white; border: none; padding: 10px 20px; border-radius: 5px; cursor: pointer; }
        .refresh-btn:hover { background: #c73e54; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Matchbook Admin Dashboard</h1>
        <div>
            <button class="refresh-btn" onclick="refreshDashboard()">Refresh</button>
        </div>
    </div>
    <div class="container">
        <div class="grid">
            <div class="card">
                <h2>System Status</h2>
                <div class="stat"><span>Status</span><span id="status" class="status">Loading...</span></div>
                <div class="stat"><span>Uptime</span><span id="uptime" class="stat-value">Loading...</span></div>
                <div class="stat"><span>Go Version</span><span id="go-version" class="stat-value">Loading...</span></div>
                <div class="stat"><span>Go Routines</span><span id="goroutines" class="stat-value">Loading...</span></div>
                <div class="stat"><span>Memory</span><span id="memory" class="stat-value">Loading...</span></div>
            </div>
            <div class="card">
                <h2>Order Books</h2>
                <div class="stat"><span>Total Symbols</span><span id="total-symbols" class="stat-value">Loading...</span></div>
                <div class="stat"><span>Total Orders</span><span id="total-orders" class="stat-value">Loading...</span></div>
                <div class="stat"><span>Redis Cache</span><span id="redis-status" class="stat-value">Loading...</span></div>
            </div>
            <div class="card">
                <h2>WebSocket</h2>
                <div class="stat"><span>Total Connections</span><span id="ws-connections" class="stat-value">Loading...</span></div>
            </div>
        </div>
        <div class="card">
            <h2>Symbols</h2>
            <table class="symbol-table">
                <thead>
                    <tr>
                        <th>Symbol</th>
                        <th>Orders</th>
                        <th>Best Bid</th>
                        <th>Best Ask</th>
                        <th>Spread</th>
                        <th>Spread %</th>
                    </tr>
                </thead>
                <tbody id="symbols-table">
                    <tr><td colspan="6">Loading...</td></tr>
                </tbody>
            </table>
        </div>
    </div>
    <script>
        async function refreshDashboard() {
            try {
                const [healthRes, booksRes, wsRes] = await Promise.all([
                    fetch('/admin/health'),
                    fetch('/admin/books'),
                    fetch('/admin/connections')
                ]);

                const health = await healthRes.json();
                const books = await booksRes.json();
                const ws = await wsRes.json();

                document.getElementById('status').textContent = health.status.toUpperCase();
                document.getElementById('status').className = 'status ' + health.status;
                document.getElementById('uptime').textContent = formatDuration(health.uptime);
                document.getElementById('go-version').textContent = health.system.go_version;
                document.getElementById('goroutines').textContent = health.system.goroutines;
                document.getElementById('memory').textContent = health.system.memory_mb.toFixed(2) + ' MB';

                document.getElementById('total-symbols').textContent = books.total_symbols;
                document.getElementById('total-orders').textContent = books.symbols.reduce((sum, s) => sum + s.order_count, 0);
                document.getElementById('redis-status').textContent = health.services.redis || 'unknown';

                document.getElementById('ws-connections').textContent = ws.total_connections;

                const tbody = document.getElementById('symbols-table');
                tbody.innerHTML = books.symbols.map(s => {
                    const spreadClass = s.spread >= 0 ? 'positive' : 'negative';
                    return '<tr>' +
                        '<td><strong>' + s.symbol + '</strong></td>' +
                        '<td>' + s.order_count + '</td>' +
                        '<td>' + (s.best_bid_ok ? s.best_bid : 'N/A') + '</td>' +
                        '<td>' + (s.best_ask_ok ? s.best_ask : 'N/A') + '</td>' +
                        '<td class="' + spreadClass + '">' + (s.best_bid_ok && s.best_ask_ok ? s.spread : 'N/A') + '</td>' +
                        '<td class="' + spreadClass + '">' + (s.best_bid_ok && s.best_ask_ok ? s.spread_percent.toFixed(4) + '%' : 'N/A') + '</td>' +
                        '</tr>';
                }).join('');

            } catch (error) {
                console.error('Failed to fetch dashboard data:', error);
            }
        }

        function formatDuration(duration) {
            const seconds = Math.floor(duration / 1e9);
            const hours = Math.floor(seconds / 3600);
            const minutes = Math.floor((seconds % 3600) / 60);
            const secs = seconds % 60;
            return hours + 'h ' + minutes + 'm ' + secs + 's';
        }

        refreshDashboard();
        setInterval(refreshDashboard, 5000);
    </script>
</body>
</html>`
