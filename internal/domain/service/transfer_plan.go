package service

import (
	"strings"

	"accountmarket/internal/domain/entity"
)

type StepTemplate struct {
	Title        string
	Description  string
	Instructions []string
}

// TransferPlanProvider returns the ordered handover runbook for a platform.
type TransferPlanProvider interface {
	Steps(platform string) []StepTemplate
}

type staticTransferPlanProvider struct {
	plans map[string][]StepTemplate
}

func NewTransferPlanProvider() TransferPlanProvider {
	return &staticTransferPlanProvider{plans: transferPlans}
}

// Steps falls back to the generic plan for platforms without a runbook.
func (p *staticTransferPlanProvider) Steps(platform string) []StepTemplate {
	key := strings.ToLower(strings.TrimSpace(platform))
	if alias, ok := platformAliases[key]; ok {
		key = alias
	}
	plan, ok := p.plans[key]
	if !ok {
		plan = genericPlan
	}
	out := make([]StepTemplate, len(plan))
	for i, s := range plan {
		out[i] = StepTemplate{
			Title:        s.Title,
			Description:  s.Description,
			Instructions: append([]string(nil), s.Instructions...),
		}
	}
	return out
}

// NewTransferProgress materialises a plan into numbered pending steps.
func NewTransferProgress(templates []StepTemplate) []entity.TransferStep {
	steps := make([]entity.TransferStep, len(templates))
	for i, t := range templates {
		steps[i] = entity.TransferStep{
			StepNumber:   i + 1,
			Title:        t.Title,
			Description:  t.Description,
			Instructions: append([]string(nil), t.Instructions...),
			Status:       entity.StepStatusPending,
		}
	}
	return steps
}

var platformAliases = map[string]string{
	"ig":  "instagram",
	"yt":  "youtube",
	"x":   "twitter",
	"fb":  "facebook",
	"tt":  "tiktok",
	"twt": "twitter",
}

var genericPlan = []StepTemplate{
	{
		Title:       "Verify account access",
		Description: "Seller shares login details and the buyer confirms they can sign in.",
		Instructions: []string{
			"Seller sends the current login credentials through the transaction chat",
			"Buyer signs in and confirms the account matches the listing",
		},
	},
	{
		Title:       "Change security settings",
		Description: "Buyer takes over every recovery and login factor.",
		Instructions: []string{
			"Change the account email and phone number to the buyer's",
			"Set a new password",
			"Disable or re-enroll two-factor authentication on the buyer's device",
		},
	},
	{
		Title:       "Final verification",
		Description: "Buyer confirms the seller no longer has any access.",
		Instructions: []string{
			"Sign out all other sessions",
			"Confirm the seller cannot recover the account",
		},
	},
}

var transferPlans = map[string][]StepTemplate{
	"instagram": {
		{
			Title:       "Verify account access",
			Description: "Buyer confirms they can log into the Instagram account.",
			Instructions: []string{
				"Seller shares the username and current password in the transaction chat",
				"Buyer logs in and checks followers, posts and insights match the listing",
			},
		},
		{
			Title:       "Change email address",
			Description: "Replace the account email with the buyer's email.",
			Instructions: []string{
				"Open Settings > Accounts Center > Personal details > Contact info",
				"Add the buyer's email and confirm the verification code",
				"Remove the seller's email",
			},
		},
		{
			Title:       "Change phone number",
			Description: "Replace the account phone number with the buyer's.",
			Instructions: []string{
				"Open Accounts Center > Personal details > Contact info",
				"Add the buyer's phone number and confirm the SMS code",
				"Remove the seller's phone number",
			},
		},
		{
			Title:       "Change password",
			Description: "Buyer sets a new password known only to them.",
			Instructions: []string{
				"Open Accounts Center > Password and security > Change password",
				"Choose a new strong password",
			},
		},
		{
			Title:       "Disable seller two-factor authentication",
			Description: "Remove the seller's 2FA methods and enroll the buyer's.",
			Instructions: []string{
				"Open Password and security > Two-factor authentication",
				"Remove authenticator apps and backup codes belonging to the seller",
				"Enroll the buyer's authenticator app",
			},
		},
		{
			Title:       "Remove linked accounts",
			Description: "Unlink the seller's Facebook page and other connected accounts.",
			Instructions: []string{
				"Open Accounts Center > Accounts and remove the seller's Facebook profile",
				"Review connected apps and revoke ones the buyer does not use",
			},
		},
		{
			Title:       "Final verification",
			Description: "Buyer confirms full, exclusive control of the account.",
			Instructions: []string{
				"Log out all other sessions from Where you're logged in",
				"Confirm no pending email or phone change requests remain",
			},
		},
	},
	"youtube": {
		{
			Title:       "Verify channel access",
			Description: "Buyer confirms access to the channel and YouTube Studio.",
			Instructions: []string{
				"Seller invites the buyer as a channel manager, or shares brand account access",
				"Buyer opens YouTube Studio and checks subscribers and monetization status",
			},
		},
		{
			Title:       "Transfer brand account ownership",
			Description: "Seller adds the buyer as an owner of the brand account.",
			Instructions: []string{
				"Open Settings > Permissions and invite the buyer's Google account as Owner",
				"Wait seven days if Google requires the primary owner delay",
			},
		},
		{
			Title:       "Make buyer primary owner",
			Description: "Buyer becomes the primary owner of the brand account.",
			Instructions: []string{
				"In the brand account settings, transfer primary ownership to the buyer",
			},
		},
		{
			Title:       "Remove seller access",
			Description: "Seller is removed from every role on the channel.",
			Instructions: []string{
				"Remove the seller's Google account from Permissions",
				"Disconnect the seller's AdSense account if the buyer will use their own",
			},
		},
		{
			Title:       "Final verification",
			Description: "Buyer confirms exclusive ownership.",
			Instructions: []string{
				"Confirm the buyer is the only owner listed",
				"Check no pending invitations remain",
			},
		},
	},
	"tiktok": {
		{
			Title:       "Verify account access",
			Description: "Buyer confirms they can log into the TikTok account.",
			Instructions: []string{
				"Seller shares the login in the transaction chat",
				"Buyer checks followers and content match the listing",
			},
		},
		{
			Title:       "Change email and phone",
			Description: "Replace the seller's contact details with the buyer's.",
			Instructions: []string{
				"Open Settings and privacy > Account > Account information",
				"Update email and phone to the buyer's and confirm the codes",
			},
		},
		{
			Title:       "Change password",
			Description: "Buyer sets a new password.",
			Instructions: []string{
				"Open Security and permissions > Password and set a new password",
			},
		},
		{
			Title:       "Reset security settings",
			Description: "Remove seller devices and 2-step verification.",
			Instructions: []string{
				"Open Security > Manage devices and remove the seller's devices",
				"Re-enroll 2-step verification on the buyer's phone",
			},
		},
		{
			Title:       "Final verification",
			Description: "Buyer confirms exclusive control of the account.",
			Instructions: []string{
				"Confirm no unknown devices are logged in",
			},
		},
	},
	"twitter": {
		{
			Title:       "Verify account access",
			Description: "Buyer confirms they can log into the X account.",
			Instructions: []string{
				"Seller shares the login in the transaction chat",
				"Buyer checks handle, followers and posts match the listing",
			},
		},
		{
			Title:       "Change email and phone",
			Description: "Replace the seller's contact details with the buyer's.",
			Instructions: []string{
				"Open Settings > Your account > Account information",
				"Update email and phone number to the buyer's",
			},
		},
		{
			Title:       "Change password and 2FA",
			Description: "Buyer sets a new password and two-factor method.",
			Instructions: []string{
				"Change the password under Settings > Your account",
				"Open Security > Two-factor authentication and re-enroll on the buyer's device",
			},
		},
		{
			Title:       "Revoke sessions and apps",
			Description: "Remove every seller session and connected app.",
			Instructions: []string{
				"Log out all other sessions under Apps and sessions",
				"Revoke connected apps the buyer does not use",
			},
		},
		{
			Title:       "Final verification",
			Description: "Buyer confirms exclusive control of the account.",
			Instructions: []string{
				"Confirm the seller can no longer reset the password",
			},
		},
	},
	"facebook": {
		{
			Title:       "Verify page access",
			Description: "Buyer confirms access to the Facebook page.",
			Instructions: []string{
				"Seller invites the buyer's profile to the page with full control",
				"Buyer accepts the invitation in the notifications panel",
			},
		},
		{
			Title:       "Grant buyer full control",
			Description: "Buyer holds full control with Facebook access.",
			Instructions: []string{
				"Open Page settings > Page access and confirm the buyer has full control",
			},
		},
		{
			Title:       "Move business assets",
			Description: "Transfer the page out of the seller's Business Manager if used.",
			Instructions: []string{
				"Request the page from the buyer's Business Manager",
				"Seller approves the request and removes the page from their portfolio",
			},
		},
		{
			Title:       "Remove seller access",
			Description: "Seller is removed from every page role.",
			Instructions: []string{
				"Buyer removes the seller under Page access",
			},
		},
		{
			Title:       "Final verification",
			Description: "Buyer confirms exclusive control of the page.",
			Instructions: []string{
				"Confirm the buyer is the only person with full control",
			},
		},
	},
}
