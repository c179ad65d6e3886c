package service

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/cloo-solutions/postcraft/internal/domain"
)

// buildPostPrompt assembles the post-generation prompt from the page chunks
// and the image descriptions.
func buildPostPrompt(chunks []domain.Chunk, images []domain.ImageDescription) string {
	var content strings.Builder
	for _, chunk := range chunks {
		content.WriteString(fmt.Sprintf("<web_content>%s</web_content>\n", chunk.Text))
	}

	var described strings.Builder
	for _, image := range images {
		described.WriteString(fmt.Sprintf("<image_url>%s</image_url><image_description>%s</image_description>\n",
			image.URL, image.Description))
	}

	return fmt.Sprintf(`You are a social media content creator specializing in crafting engaging Instagram posts. Your task is to create a compelling post based on web content and image descriptions.

First, review the following web content:

<web_content>
%s</web_content>

Now, consider the descriptions of the images associated with this content:

<image_descriptions>
%s</image_descriptions>

1. Draft a caption, using the following hook: %s

2. Select hashtags:
   - Choose 5-7 relevant hashtags that relate to the content and images
   - Include a mix of popular and niche hashtags to increase discoverability

3. Format your Instagram post:
   - Write your caption, keeping it under 2200 characters
   - Include your hashtags, starting each with #
   - Suggest which of the described images would be best to use for this post, or describe an ideal image if none of the provided descriptions seem suitable
   - Write a first comment with a call to action and the source url

Keep the tone conversational and engaging, as if you're speaking directly to the audience. Avoid jargon unless it's appropriate for the target audience. The goal is a post that resonates with Instagram users and encourages them to interact with the content.`,
		content.String(), described.String(), randomHook())
}

var captionHooks = []string{
	"Calling all ... (identify a specific audience such as web designers, social media managers, digital marketers, coaches, therapists etc.)",
	"Can I share a secret?",
	"Write a joke if your brand voice allows it.",
	"Which one are you? A)... or B)...",
	"Did you know ... (share an interesting statistic)",
	"How to ...",
	"Fun fact: ... (share a fun fact about the day, month, industry etc.)",
	"Start with a quote from influencers in your niche",
	"Unpopular opinion: ... (share your unpopular opinion)",
	"The craziest thing just happened, you will never believe it...",
	"I wasn't going to share this, but ...",
	"The biggest lesson I've learned in my life.",
	"You need to hear this today.",
	"X things I learned this year",
	"Here's how I know ... is possible for you",
	"X Steps to ...",
	"Hate ...? You are in luck.",
	"Tips when ... (creating your social media posts, organizing your room etc.)",
	"Let's talk about ...",
	"Mistakes I made when ...",
	"X Ways to ...",
	"How I went from ...",
	"I have a confession to make.",
	"What I wish I had done differently.",
	"Why I don't ...",
	"What to do after ...",
}

func randomHook() string {
	return captionHooks[rand.Intn(len(captionHooks))]
}

// contentCalendarPrompt assembles the calendar-generation prompt from the
// brand profile and scheduling window.
func contentCalendarPrompt(voice, audience, description, dateRange string, postsPerDay int) string {
	return fmt.Sprintf(`given the following info about a website,
draft %d Instagram posts for each day in %s,
so if there are any holidays or special events we can tie into, use those.
for each topic, generate specific 3 search terms that I can use to perform embedding searches on my website to find relevant content.

<brand voice>
%s
</brand voice>
<audience>
%s
</audience>
<description>
%s
</description>`, postsPerDay, dateRange, voice, audience, description)
}

// brandVoicePrompt assembles the website analysis prompt.
func brandVoicePrompt(pageHTML string) string {
	return fmt.Sprintf(`Analyze the following html, determining the following:

 * Describe the website and its offerings/products/services
 * Describe the brand voice and tone
 * Describe the audience of the website

<html>
%s
</html>`, pageHTML)
}
