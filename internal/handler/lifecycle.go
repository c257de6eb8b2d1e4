package handler

import (
	"github.com/noah-isme/sma-crm-api/internal/dto"
	"github.com/noah-isme/sma-crm-api/internal/models"
)

func resyncResponse(transition *models.LifecycleTransition) *dto.ResyncResponse {
	if transition == nil {
		return nil
	}
	return &dto.ResyncResponse{
		PersonID: transition.PersonID,
		Previous: transition.Previous,
		Current:  transition.Current,
		Changed:  transition.Changed,
		Attempts: transition.Attempts,
	}
}

// lifecycleMeta attaches the resync outcome of a mutation to the response envelope.
func lifecycleMeta(transition *models.LifecycleTransition) map[string]interface{} {
	if transition == nil {
		return nil
	}
	return map[string]interface{}{"lifecycle": resyncResponse(transition)}
}
