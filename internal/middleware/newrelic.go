package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionAttributes annotates the New Relic transaction started by
// nrgin with the caller and the request id, and reports handler errors. It
// is a no-op when the agent is disabled.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if username, role, ok := CurrentUser(c); ok {
			txn.AddAttribute("carva.username", username)
			txn.AddAttribute("carva.role", string(role))
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("carva.requestId", id)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
