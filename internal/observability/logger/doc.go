// Package logger expone un logger Zap singleton con soporte de scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una sola instancia global, inicializada con Init() desde main.
//   - Scoping: cada request HTTP recibe un logger hijo con request_id/method/path
//     que los handlers recuperan con From(ctx).
//   - Entornos: "dev" escribe a consola con colores, "prod" escribe JSON.
//
// # Uso
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Warn("refresh failed", logger.Stage("jwks"), logger.URL(u), logger.Err(err))
package logger
