package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/forgelab/internal/metrics"
	"github.com/hitoshi/forgelab/internal/middleware"
)

// Pinger はヘルスチェックで疎通確認する依存のインターフェース。
type Pinger interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenParser       middleware.TokenParser
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロジェクト
	ProjectService ProjectServiceInterface

	// アンケート
	SurveyService SurveyServiceInterface

	// トラッキング
	QRService QRServiceInterface
	BaseURL   string

	// 観測
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging → Gatekeeper
//
// 認証が必要なAPIグループはさらに Session → RateLimit(General) を通る。
// ログイン・登録・トラッキング発行はIP単位のレート制限を受ける。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics.RecordHTTPStatus))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewGatekeeperMiddleware(deps.TokenParser))

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenParser, deps.Metrics, deps.AuthConfig)
	projectHandler := NewProjectHandler(deps.ProjectService)
	surveyHandler := NewSurveyHandler(deps.SurveyService, deps.Metrics)
	qrHandler := NewQRHandler(deps.QRService, deps.Metrics, deps.BaseURL)

	// --- ページシェル ---

	r.Get("/", PageHandler("home", "ForgeLab"))
	r.Get("/login", PageHandler("login", "ログイン"))
	r.Get("/register", PageHandler("register", "新規登録"))
	r.Get("/dashboard", PageHandler("dashboard", "ダッシュボード"))

	// --- 運用エンドポイント ---

	r.Get("/healthz", healthzHandler(deps.DB))
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// --- 認証不要のルート ---

	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// トラッキングURLの発行とリダイレクト
	r.With(deps.RateLimiter.AuthMiddleware()).Post("/api/create-tracked", qrHandler.CreateTracked)
	r.Get("/api/track/{qrId}", qrHandler.Track)

	// アンケートの公開エンドポイント
	r.Get("/api/surveys/{slug}", surveyHandler.GetSurvey)
	r.Post("/api/surveys/{slug}/respond", surveyHandler.Respond)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenParser))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロジェクト管理
		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.ListProjects)
			r.Post("/", projectHandler.CreateProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.GetProject)
				r.Patch("/", projectHandler.RenameProject)
				r.Delete("/", projectHandler.DeleteProject)

				r.Get("/tools", projectHandler.ListTools)
				r.Post("/tools", projectHandler.AddTool)
				r.Delete("/tools/{slug}", projectHandler.RemoveTool)
			})
		})

		// アンケート管理（作成者側）
		r.Get("/api/surveys", surveyHandler.ListSurveys)
		r.Post("/api/surveys", surveyHandler.CreateSurvey)
		r.Get("/api/surveys/{slug}/responses/count", surveyHandler.CountResponses)

		// トラッキング統計
		r.Route("/api/stats", func(r chi.Router) {
			r.Delete("/", qrHandler.DeleteAll)
			r.Get("/{qrId}", qrHandler.GetStats)
			r.Delete("/{qrId}", qrHandler.Delete)
		})
	})

	return r
}

// healthzHandler はDB疎通を含むヘルスチェックハンドラーを返す。
func healthzHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status": "unhealthy",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
		})
	}
}
