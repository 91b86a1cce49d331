package persona

import "strings"

// Topic names the canned reply group a fallback message matched.
type Topic string

const (
	TopicGreeting       Topic = "greeting"
	TopicSkills         Topic = "skills"
	TopicProjects       Topic = "projects"
	TopicExperience     Topic = "experience"
	TopicEducation      Topic = "education"
	TopicContact        Topic = "contact"
	TopicSustainability Topic = "sustainability"
	TopicGeneric        Topic = "generic"
)

type fallbackRule struct {
	topic    Topic
	keywords []string
	reply    string
}

// fallbackRules are evaluated in order and the first match wins. Matching is a plain
// substring test, so "hi" also fires inside words such as "this".
var fallbackRules = []fallbackRule{
	{
		topic:    TopicGreeting,
		keywords: []string{"hello", "hi", "hey"},
		reply:    "Hey there! I'm Khelan. Great to have you here! I work at the intersection of energy modeling, sustainability, and full-stack development. What would you like to know about my work?",
	},
	{
		topic:    TopicSkills,
		keywords: []string{"skill", "tech", "stack"},
		reply:    "I work with eQuest and IES VE for energy modeling, and on the dev side I'm into the MERN stack, Python, and AI/ML. I also have LEED AP BD+C certification. I love combining tech with sustainability!",
	},
	{
		topic:    TopicProjects,
		keywords: []string{"project"},
		reply:    "My favorite project is the AI-Powered eQuest Report Analysis System — it uses RAG architecture to make energy reports searchable and analyzable. I've also built a Smart Shopping Cart with ESP32 and done cybersecurity research on smart grids!",
	},
	{
		topic:    TopicExperience,
		keywords: []string{"experience", "work", "job"},
		reply:    "Currently I'm interning at Ergo Energy LLP doing energy modeling and LEED certification work. Before that, I managed a dev team at Brown Ion and built an influencer marketing platform at Admyre. I've been coding since 2021!",
	},
	{
		topic:    TopicEducation,
		keywords: []string{"education", "university", "college"},
		reply:    "I'm a third-year B.Tech ECE student at Nirma University, Ahmedabad with a CGPA of 8.12. My coursework covers Data Structures and Machine Learning. I also qualified JEE Main!",
	},
	{
		topic:    TopicContact,
		keywords: []string{"contact", "email", "reach"},
		reply:    "You can reach me at khelan05@gmail.com or call +91-7574001711. I'm also on LinkedIn at linkedin.com/in/khelanmehta and GitHub at github.com/khelan-mehta. Let's connect!",
	},
	{
		topic:    TopicSustainability,
		keywords: []string{"leed", "green", "sustainab"},
		reply:    "Sustainability is my passion! I'm LEED AP BD+C certified and work on energy modeling for commercial buildings. I believe technology can drive massive improvements in building energy performance and help us achieve net-zero goals.",
	},
}

const genericReply = "That's a great question! I'm passionate about energy modeling, sustainability tech, and full-stack development. To get the full AI experience, make sure the backend has an OpenAI API key configured. Feel free to ask about my projects, skills, or experience!"

// MatchFallback returns the canned reply for message and the topic that produced it.
func MatchFallback(message string) (Topic, string) {
	lower := strings.ToLower(message)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.topic, rule.reply
			}
		}
	}
	return TopicGeneric, genericReply
}

// FallbackReply returns the canned reply for message.
func FallbackReply(message string) string {
	_, reply := MatchFallback(message)
	return reply
}
