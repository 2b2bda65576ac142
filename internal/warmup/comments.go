package warmup

import (
	"fmt"
	"math/rand"
)

// Word banks for generated comments. Deliberately emoji-free: some
// browser drivers choke on non-BMP characters when typing.
var (
	positiveWords = []string{
		"Amazing", "Great", "Awesome", "Fantastic", "Wonderful", "Brilliant",
		"Perfect", "Excellent", "Beautiful", "Incredible", "Outstanding",
		"Lovely", "Superb", "Magnificent", "Impressive", "Remarkable",
	}

	reactionWords = []string{
		"post", "content", "share", "photo", "update", "message",
		"story", "moment", "picture", "thought", "idea", "perspective",
	}

	commentEndings = []string{
		"!", "!!", "!!!", ".", "..", "...", ":)", ":D", ";)",
		" - love it!", " - so good!", " - thanks for sharing!",
	}
)

// GenerateComment builds a short, varied, positive comment.
func GenerateComment() string {
	word := positiveWords[rand.Intn(len(positiveWords))]
	reaction := reactionWords[rand.Intn(len(reactionWords))]
	ending := commentEndings[rand.Intn(len(commentEndings))]

	structures := []string{
		fmt.Sprintf("%s %s%s", word, reaction, ending),
		fmt.Sprintf("%s%s", word, ending),
		fmt.Sprintf("Love this%s", ending),
		fmt.Sprintf("Thanks for sharing%s", ending),
		fmt.Sprintf("This is %s%s", lower(word), ending),
		fmt.Sprintf("So %s%s", lower(word), ending),
		fmt.Sprintf("%s stuff%s", word, ending),
		fmt.Sprintf("Really %s!", lower(word)),
		fmt.Sprintf("What a %s %s!", lower(word), reaction),
	}
	return structures[rand.Intn(len(structures))]
}

func lower(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}
