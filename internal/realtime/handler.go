package realtime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"restoran-pos/internal/scope"
)

// GET /api/changes?branch_id=&kinds=order,restaurant_table
// Server-sent events, one "change" event per committed write of the branch.
func StreamHandler(hub *Hub, db *gorm.DB, keepAlive time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		kinds, err := parseKinds(c.Query("kinds"))
		if err != nil {
			return err
		}

		events, cancel := hub.Subscribe(branchID, kinds...)

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cancel()

			ticker := time.NewTicker(keepAlive)
			defer ticker.Stop()

			fmt.Fprint(w, ": connected\n\n")
			if err := w.Flush(); err != nil {
				return
			}
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return
					}
					payload, err := json.Marshal(e)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
				case <-ticker.C:
					fmt.Fprint(w, ": ping\n\n")
				}
				// Flush fails once the client went away.
				if err := w.Flush(); err != nil {
					return
				}
			}
		}))
		return nil
	}
}

func parseKinds(raw string) ([]Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []Kind
	for _, part := range strings.Split(raw, ",") {
		k := Kind(strings.TrimSpace(part))
		if k == "" {
			continue
		}
		if !k.Valid() {
			return nil, fiber.NewError(fiber.StatusBadRequest, "unknown kind "+string(k))
		}
		out = append(out, k)
	}
	return out, nil
}
