package bridge

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"overbridge/internal/overseerr"
)

// Every response uses the same envelope so the extension can branch on one
// shape: {ok:true, data} or {ok:false, error, code?}.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// respondErr maps the error taxonomy to HTTP statuses and user-facing
// messages. Anything unclassified is logged and reduced to a generic
// message; raw internals never reach the UI.
func respondErr(c *gin.Context, err error) {
	switch e := err.(type) {
	case *overseerr.AuthRequiredError:
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": e.Message, "code": e.Code()})
	case *overseerr.ValidationError:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": e.Message})
	case *overseerr.TransportError:
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": e.Error()})
	case *overseerr.ServerError:
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": e.Error()})
	default:
		log.Printf("[bridge] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "something went wrong, try again"})
	}
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": message})
}
