package server

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"octarcade/internal/game"
)

type amountRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type minesBetRequest struct {
	Amount    string `json:"amount" validate:"required"`
	MineCount int    `json:"mine_count" validate:"required,min=1,max=24"`
}

type minesRevealRequest struct {
	Point *uint64 `json:"point" validate:"required,max=24"`
}

type slideBetRequest struct {
	Amount string `json:"amount" validate:"required"`
	Target string `json:"target_multiplier" validate:"required"`
}

type pokerDrawRequest struct {
	Holds []int `json:"holds" validate:"max=5,dive,min=0,max=4"`
}

// Health handler
func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"game": fiber.Map{
			"status":            "running",
			"connected_clients": s.hub.GetClientCount(),
			"controllers":       s.registry.Types(),
		},
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	if s.cache != nil {
		health["cache"] = s.cache.Health()
	}
	return c.JSON(health)
}

// parseBody decodes and validates the request body into req.
func (s *FiberServer) parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func parseAmount(display string) (uint64, error) {
	amount, err := game.ToSmallest(display)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return amount, nil
}

// errorStatus maps controller errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrInvalidBet),
		errors.Is(err, game.ErrInvalidMineCount),
		errors.Is(err, game.ErrInvalidTile),
		errors.Is(err, game.ErrInvalidHold),
		errors.Is(err, game.ErrInvalidTarget),
		errors.Is(err, game.ErrNoPlayer),
		errors.Is(err, game.ErrNotConfigured):
		return fiber.StatusBadRequest
	case errors.Is(err, game.ErrNoActiveSession),
		errors.Is(err, game.ErrSessionActive),
		errors.Is(err, game.ErrActionInFlight),
		errors.Is(err, game.ErrNotFlying):
		return fiber.StatusConflict
	case errors.Is(err, game.ErrStopped):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusBadGateway
}

func fail(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
}

// Crash handlers

func (s *FiberServer) crashStateHandler(c *fiber.Ctx) error {
	return c.JSON(s.games.Crash.State())
}

func (s *FiberServer) crashHistoryHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"history": s.games.Crash.State().History})
}

func (s *FiberServer) crashBetHandler(c *fiber.Ctx) error {
	var req amountRequest
	if err := s.parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fail(c, err)
	}
	if err := s.games.Crash.PlaceBet(c.UserContext(), amount); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.Crash.State())
}

func (s *FiberServer) crashFlyHandler(c *fiber.Ctx) error {
	if err := s.games.Crash.StartFlying(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.Crash.State())
}

func (s *FiberServer) crashCashoutHandler(c *fiber.Ctx) error {
	if err := s.games.Crash.Cashout(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.Crash.State())
}

func (s *FiberServer) crashResetHandler(c *fiber.Ctx) error {
	if err := s.games.Crash.Reset(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.Crash.State())
}

// Mines handlers

func (s *FiberServer) minesStateHandler(c *fiber.Ctx) error {
	return c.JSON(s.games.Mines.State())
}

func (s *FiberServer) minesBetHandler(c *fiber.Ctx) error {
	var req minesBetRequest
	if err := s.parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fail(c, err)
	}
	if err := s.games.Mines.CreateGame(c.UserContext(), amount, req.MineCount); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.Mines.State())
}

func (s *FiberServer) minesRevealHandler(c *fiber.Ctx) error {
	var req minesRevealRequest
	if err := s.parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	submitted, err := s.games.Mines.RevealTile(c.UserContext(), *req.Point)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"submitted": submitted,
		"state":     s.games.Mines.State(),
	})
}

func (s *FiberServer) minesCashoutHandler(c *fiber.Ctx) error {
	if err := s.games.Mines.Cashout(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.Mines.State())
}

// Slide handlers

func (s *FiberServer) slideStateHandler(c *fiber.Ctx) error {
	return c.JSON(s.games.Slide.State())
}

func (s *FiberServer) slideBetHandler(c *fiber.Ctx) error {
	var req slideBetRequest
	if err := s.parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fail(c, err)
	}
	target, err := game.ParseMultiplier(req.Target)
	if err != nil {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, err.Error()))
	}
	if err := s.games.Slide.PlaceBet(c.UserContext(), amount, target); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.Slide.State())
}

// Video poker handlers

func (s *FiberServer) pokerStateHandler(c *fiber.Ctx) error {
	return c.JSON(s.games.VideoPoker.State())
}

func (s *FiberServer) pokerDealHandler(c *fiber.Ctx) error {
	var req amountRequest
	if err := s.parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fail(c, err)
	}
	if err := s.games.VideoPoker.Deal(c.UserContext(), amount); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.games.VideoPoker.State())
}

func (s *FiberServer) pokerDrawHandler(c *fiber.Ctx) error {
	var req pokerDrawRequest
	if err := s.parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	result, err := s.games.VideoPoker.Draw(c.UserContext(), req.Holds)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"result": result,
		"state":  s.games.VideoPoker.State(),
	})
}

// Leaderboard handlers

func (s *FiberServer) leaderboardHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if s.db != nil {
		top, err := s.db.TopPlayers(c.UserContext(), limit)
		if err == nil {
			return c.JSON(fiber.Map{"source": "archive", "ranking": top})
		}
		log.Printf("[DB] Leaderboard query failed, serving live ranking: %v", err)
	}
	return c.JSON(fiber.Map{"source": "live", "ranking": s.games.Leaderboard.Top(limit)})
}

func (s *FiberServer) transactionsHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	return c.JSON(fiber.Map{"transactions": s.games.Leaderboard.Transactions(limit)})
}
