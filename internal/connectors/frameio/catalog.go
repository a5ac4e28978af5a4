package frameio

import "slices"

// Webhook event types Frame.io can deliver.
const (
	EventProjectCreated      = "project.created"
	EventProjectUpdated      = "project.updated"
	EventProjectDeleted      = "project.deleted"
	EventAssetCreated        = "asset.created"
	EventAssetCopied         = "asset.copied"
	EventAssetUpdated        = "asset.updated"
	EventAssetDeleted        = "asset.deleted"
	EventAssetReady          = "asset.ready"
	EventAssetVersioned      = "asset.versioned"
	EventActionExecuted      = "action.executed"
	EventInteractionExecuted = "interaction.executed"
	EventAssetLabelUpdated   = "asset.label.updated"
	EventCommentCreated      = "comment.created"
	EventCommentUpdated      = "comment.updated"
	EventCommentDeleted      = "comment.deleted"
	EventCommentCompleted    = "comment.completed"
	EventCommentUncompleted  = "comment.uncompleted"
	EventReviewLinkCreated   = "reviewlink.created"
	EventCollaboratorCreated = "collaborator.created"
	EventCollaboratorDeleted = "collaborator.deleted"
	EventTeamMemberCreated   = "teammember.created"
	EventTeamMemberDeleted   = "teammember.deleted"
)

var eventTypes = []string{
	EventProjectCreated, EventProjectUpdated, EventProjectDeleted,
	EventAssetCreated, EventAssetCopied, EventAssetUpdated, EventAssetDeleted,
	EventAssetReady, EventAssetVersioned,
	EventActionExecuted, EventInteractionExecuted,
	EventAssetLabelUpdated,
	EventCommentCreated, EventCommentUpdated, EventCommentDeleted,
	EventCommentCompleted, EventCommentUncompleted,
	EventReviewLinkCreated,
	EventCollaboratorCreated, EventCollaboratorDeleted,
	EventTeamMemberCreated, EventTeamMemberDeleted,
}

// EventTypes returns the full catalog.
func EventTypes() []string {
	return slices.Clone(eventTypes)
}
