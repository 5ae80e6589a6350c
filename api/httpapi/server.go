// Package httpapi is the HTTP surface of the engine: order entry, matching,
// book queries, and a websocket depth stream. Prices cross this boundary as
// decimal strings and are converted to ticks before the service sees them.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchbook/domain/book"
	"matchbook/pricing"
	"matchbook/service"
)

type Server struct {
	svc  *service.BookService
	conv pricing.Converter
	hub  *Hub
	log  *slog.Logger
}

func NewServer(svc *service.BookService, conv pricing.Converter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		svc:  svc,
		conv: conv,
		hub:  NewHub(log),
		log:  log,
	}
	svc.OnDepth(func(seq uint64, d book.DepthView) {
		payload := s.depthPayload(d)
		payload["seq"] = seq
		s.hub.Broadcast(payload)
	})
	return s
}

// RegisterRoutes sets up HTTP endpoints.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/orders", s.addOrderHandler)
	v1.DELETE("/orders", s.removeOrderHandler)
	v1.POST("/match", s.matchHandler)
	v1.GET("/book", s.bookHandler)
	v1.GET("/book/depth", s.depthHandler)

	r.GET("/ws/depth", s.hub.HandleWS)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type orderRequest struct {
	Side  string `json:"side" binding:"required"`
	Price string `json:"price" binding:"required"`
	Qty   int64  `json:"qty" binding:"required"`
}

func (s *Server) parseOrder(c *gin.Context) (book.Side, int64, int64, bool) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, 0, false
	}
	side, err := book.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, 0, false
	}
	ticks, err := s.conv.ToTicks(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, 0, false
	}
	return side, ticks, req.Qty, true
}

func (s *Server) addOrderHandler(c *gin.Context) {
	side, price, qty, ok := s.parseOrder(c)
	if !ok {
		return
	}
	seq, err := s.svc.Add(side, price, qty)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "seq": seq})
}

func (s *Server) removeOrderHandler(c *gin.Context) {
	side, price, qty, ok := s.parseOrder(c)
	if !ok {
		return
	}
	seq, err := s.svc.Remove(side, price, qty)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "seq": seq})
}

func (s *Server) matchHandler(c *gin.Context) {
	trades, err := s.svc.Match()
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(trades))
	for _, tr := range trades {
		out = append(out, gin.H{
			"price": s.conv.FromTicks(tr.Price),
			"qty":   tr.Qty,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trades": out})
}

func (s *Server) bookHandler(c *gin.Context) {
	resp := gin.H{}

	if bid, ok := s.svc.BestBid(); ok {
		resp["best_bid"] = s.levelPayload(bid)
	}
	if ask, ok := s.svc.BestAsk(); ok {
		resp["best_ask"] = s.levelPayload(ask)
	}
	if spread, ok := s.svc.Spread(); ok {
		resp["spread"] = s.conv.FromTicks(spread)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) depthHandler(c *gin.Context) {
	n := 10
	if raw := c.Query("levels"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "levels must be a positive integer"})
			return
		}
		n = v
	}
	c.JSON(http.StatusOK, s.depthPayload(s.svc.Depth(n)))
}

func (s *Server) levelPayload(lv book.LevelView) gin.H {
	return gin.H{
		"price":  s.conv.FromTicks(lv.Price),
		"qty":    lv.Qty,
		"orders": lv.Orders,
	}
}

func (s *Server) depthPayload(d book.DepthView) gin.H {
	bids := make([]gin.H, 0, len(d.Bids))
	for _, lv := range d.Bids {
		bids = append(bids, s.levelPayload(lv))
	}
	asks := make([]gin.H, 0, len(d.Asks))
	for _, lv := range d.Asks {
		asks = append(asks, s.levelPayload(lv))
	}
	return gin.H{"bids": bids, "asks": asks}
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, book.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, book.ErrLevelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, book.ErrOverRemove):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
