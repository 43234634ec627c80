package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// LocalSubjectID is the fiber local the upgrade middleware stores the
// subject under.
const LocalSubjectID = "subject_id"

func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		subjectID, ok := c.Locals(LocalSubjectID).(uuid.UUID)
		if !ok {
			_ = c.Close()
			return
		}

		client := &Client{
			hub:       hub,
			conn:      c,
			subjectID: subjectID,
			send:      make(chan []byte, 256),
		}

		hub.register <- client

		go client.WritePump()
		client.ReadPump()
	})
}

// UpgradeMiddleware rejects non-websocket requests and resolves the subject
// from the :subject_id route param.
func UpgradeMiddleware(exists func(c *fiber.Ctx, id uuid.UUID) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		subjectID, err := uuid.Parse(c.Params("subject_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid subject_id")
		}
		if exists != nil {
			if err := exists(c, subjectID); err != nil {
				return err
			}
		}

		c.Locals(LocalSubjectID, subjectID)
		return c.Next()
	}
}
