package main

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limitadorPorIP guarda um rate.Limiter por endereço de origem.
// Limitadores de IPs que sumiram expiram do cache sozinhos.
type limitadorPorIP struct {
	limite rate.Limit
	burst  int
	cache  *cache.Cache
}

func newLimitadorPorIP(rps float64, burst int) *limitadorPorIP {
	return &limitadorPorIP{
		limite: rate.Limit(rps),
		burst:  burst,
		cache:  cache.New(10*time.Minute, 20*time.Minute),
	}
}

func (l *limitadorPorIP) limiter(ip string) *rate.Limiter {
	if v, ok := l.cache.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limite, l.burst)
	// Add falha se outra requisição do mesmo IP chegou antes; nesse caso usamos o dela.
	if err := l.cache.Add(ip, lim, cache.DefaultExpiration); err != nil {
		if v, ok := l.cache.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// enderecoCliente só troca RemoteAddr pelo X-Forwarded-For/X-Real-IP quando há um proxy confiável
// na frente. Sem ele qualquer cliente escolheria o próprio IP e fugiria do limite.
func enderecoCliente(confiarProxy bool) func(http.Handler) http.Handler {
	if confiarProxy {
		return middleware.RealIP
	}
	return func(next http.Handler) http.Handler { return next }
}

// Middleware devolve 429 quando o IP passa do limite.
func (l *limitadorPorIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// middleware.RealIP pode ter trocado RemoteAddr por um IP sem porta.
			ip = r.RemoteAddr
		}

		if !l.limiter(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
