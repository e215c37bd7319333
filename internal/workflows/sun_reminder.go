package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// DefaultLeadMinutes is how long before the event the reminder goes out.
	DefaultLeadMinutes = 20

	// remindersPerRun bounds history growth; the workflow continues as new after
	// this many events.
	remindersPerRun = 60
)

// SunReminderInput is the input for the sun reminder workflow.
type SunReminderInput struct {
	// Recipient is the notification target (a Telegram chat id).
	Recipient   string
	LeadMinutes int
	// Reminders is how many reminders to send before completing. Zero runs forever.
	Reminders int
}

// SunReminderWorkflow repeatedly fetches the next sunrise or sunset at the
// guide's location, sleeps until shortly before it and sends a reminder.
func SunReminderWorkflow(ctx workflow.Context, input SunReminderInput) error {
	logger := workflow.GetLogger(ctx)

	lead := time.Duration(input.LeadMinutes) * time.Minute
	if lead <= 0 {
		lead = DefaultLeadMinutes * time.Minute
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	sent := 0
	for handled := 1; ; handled++ {
		var r SunReminder
		if err := workflow.ExecuteActivity(ctx, "FetchNextSunEvent", workflow.Now(ctx)).Get(ctx, &r); err != nil {
			return err
		}
		logger.Info("Next sun event", "type", r.Type, "at", r.At)

		if wait := r.At.Add(-lead).Sub(workflow.Now(ctx)); wait > 0 {
			if err := workflow.Sleep(ctx, wait); err != nil {
				return err
			}
		}

		if err := workflow.ExecuteActivity(ctx, "SendReminder", input.Recipient, r, lead).Get(ctx, nil); err != nil {
			// A missed reminder is not worth stopping the schedule for.
			logger.Warn("reminder failed", "type", r.Type, "error", err)
		} else {
			sent++
		}

		if input.Reminders > 0 && sent >= input.Reminders {
			logger.Info("Sun reminders complete", "sent", sent)
			return nil
		}

		// Move past the event so the next lookup returns the following one.
		if err := workflow.Sleep(ctx, r.At.Sub(workflow.Now(ctx))+time.Minute); err != nil {
			return err
		}

		if handled >= remindersPerRun {
			next := input
			if next.Reminders > 0 {
				next.Reminders -= sent
			}
			return workflow.NewContinueAsNewError(ctx, SunReminderWorkflow, next)
		}
	}
}
