package server

// RegisterGameRoutes registers routes for all game types
func (s *FiberServer) RegisterGameRoutes() {
	api := s.App.Group("/api/v1")

	crash := api.Group("/crash")
	crash.Get("/state", s.crashStateHandler)
	crash.Get("/history", s.crashHistoryHandler)
	crash.Post("/bet", s.crashBetHandler)
	crash.Post("/fly", s.crashFlyHandler)
	crash.Post("/cashout", s.crashCashoutHandler)
	crash.Post("/reset", s.crashResetHandler)

	mines := api.Group("/mines")
	mines.Get("/state", s.minesStateHandler)
	mines.Post("/bet", s.minesBetHandler)
	mines.Post("/reveal", s.minesRevealHandler)
	mines.Post("/cashout", s.minesCashoutHandler)

	slide := api.Group("/slide")
	slide.Get("/state", s.slideStateHandler)
	slide.Post("/bet", s.slideBetHandler)

	poker := api.Group("/videopoker")
	poker.Get("/state", s.pokerStateHandler)
	poker.Post("/deal", s.pokerDealHandler)
	poker.Post("/draw", s.pokerDrawHandler)

	api.Get("/leaderboard", s.leaderboardHandler)
	api.Get("/transactions", s.transactionsHandler)
}
