package approval

import (
	"context"
	"time"

	"github.com/entrhq/tabpilot/pkg/types"
)

// waitForResponse waits for the user's approval response
func (c *Correlator) waitForResponse(
	ctx context.Context,
	requestID, toolName string,
	timeout time.Duration,
	emit EventEmitter,
	responseChannel <-chan bool,
) (bool, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		logger.Warnf("Approval %s abandoned: %v", requestID, ctx.Err())
		return false, ctx.Err()

	case <-expired:
		logger.Warnf("Approval %s for %s timed out after %s", requestID, toolName, timeout)
		publish(emit, types.NewToolApprovalTimeoutEvent(requestID, toolName))
		return false, ErrApprovalTimeout

	case approved := <-responseChannel:
		publish(emit, types.NewToolApprovalResponseEvent(requestID, approved))
		if approved {
			publish(emit, types.NewToolApprovalGrantedEvent(requestID, toolName))
			return true, nil
		}
		publish(emit, types.NewToolApprovalRejectedEvent(requestID, toolName))
		return false, nil
	}
}
