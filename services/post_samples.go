package services

import (
	"time"

	"hasiru/models"
)

// TrendingTopics are offered as one-click prompts.
var TrendingTopics = []string{
	"GATE exam preparation",
	"TCS NQT tips",
	"IIT-JEE strategies",
	"CAT exam success stories",
	"Startup funding in 2023",
	"Remote work opportunities",
	"AI for career growth",
	"Tech layoffs impact",
	"Freelancing tips for engineers",
	"Resume building for tech jobs",
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func timePtr(t time.Time) *time.Time { return &t }

// samplePosts seed an owner's list the first time it is read.
func samplePosts() []models.Post {
	return []models.Post{
		{
			Topic:        "AI in Healthcare",
			Content:      "Excited to share that I've been working on implementing AI solutions in the healthcare sector! 🏥🤖\n\nThrough machine learning algorithms, we've been able to predict patient readmission rates with 94% accuracy, potentially saving millions in healthcare costs.\n\nWhat are some ways you've seen AI transform healthcare? Let's discuss in the comments! #AIinHealthcare #MachineLearning #HealthTech",
			ImageURL:     "https://images.unsplash.com/photo-1576091160399-112ba8d25d1d?ixlib=rb-4.0.3&auto=format&fit=crop&w=1080&q=80",
			SavedAt:      mustTime("2023-06-15T10:30:00Z"),
			ScheduledFor: timePtr(mustTime("2023-06-20T09:00:00Z")),
		},
		{
			Topic:    "Remote Work Productivity",
			Content:  "3 years into remote work, and here are my top productivity hacks that actually work: 💻🚀\n\n1️⃣ Time-blocking: Schedule focused work periods of 90 minutes\n2️⃣ Virtual co-working sessions with teammates\n3️⃣ The 2-minute rule: If it takes less than 2 minutes, do it immediately\n\nWhat productivity techniques have transformed your remote work experience? #RemoteWork #ProductivityTips #WorkFromHome",
			ImageURL: "https://images.unsplash.com/photo-1521898284481-a5ec348cb555?ixlib=rb-4.0.3&auto=format&fit=crop&w=1080&q=80",
			SavedAt:  mustTime("2023-06-10T14:20:00Z"),
		},
		{
			Topic:        "Leadership Skills",
			Content:      "Leadership isn't about being in charge. It's about taking care of those in your charge. 🌟\n\nAfter managing teams for over 5 years, I've learned that empathy is the most underrated leadership skill. Understanding your team's needs, challenges, and aspirations can transform average performance into excellence.\n\nRemember: People don't care how much you know until they know how much you care.\n\nWhat leadership quality do you value most? #Leadership #TeamManagement #ProfessionalGrowth",
			ImageURL:     "https://images.unsplash.com/photo-1519389950473-47ba0277781c?ixlib=rb-4.0.3&auto=format&fit=crop&w=1080&q=80",
			SavedAt:      mustTime("2023-05-28T09:15:00Z"),
			ScheduledFor: timePtr(mustTime("2023-06-25T11:30:00Z")),
		},
	}
}

// SuggestedTime is a proposed publishing slot.
type SuggestedTime struct {
	Value time.Time `json:"value"`
	Label string    `json:"label"`
}

// SuggestedTimes proposes slots tomorrow, in two and three days, and next Monday,
// at fixed times of day in now's location.
func SuggestedTimes(now time.Time) []SuggestedTime {
	at := func(days, hour, minute int) time.Time {
		d := now.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, now.Location())
	}
	untilMonday := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if untilMonday == 0 {
		untilMonday = 7
	}
	return []SuggestedTime{
		{Value: at(1, 9, 0), Label: "Tomorrow at 9:00 AM"},
		{Value: at(2, 10, 30), Label: "In 2 days at 10:30 AM"},
		{Value: at(3, 8, 0), Label: "In 3 days at 8:00 AM"},
		{Value: at(untilMonday, 9, 15), Label: "Next Monday at 9:15 AM"},
	}
}
