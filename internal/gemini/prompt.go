package gemini

import (
	"fmt"
	"strings"
)

const (
	defaultSoloPose = "Smiling brightly"
	defaultDuoPose  = "Cheek to cheek, smiling at camera, romantic vibe."
	defaultBackdrop = "The setting is a solid color aesthetic photobooth background."
)

var composeRules = []string{
	"Do NOT create a collage or grid. Create ONE single image.",
	"No borders, no frames, no text inside the image.",
	"Aspect ratio is 4:3 (landscape). Do not produce portrait or square output.",
	"Lighting: soft studio lighting, flattering skin texture.",
	"Image quality: ultra high resolution, sharp details. Keep the full figure in frame, nothing cut off (head, shoulders).",
}

func composePrompt(req ComposeRequest) string {
	background := defaultBackdrop
	if bg := strings.TrimSpace(req.BackgroundPrompt); bg != "" {
		background = fmt.Sprintf("The background/setting must be: %s.", bg)
	}

	var b strings.Builder
	if strings.TrimSpace(req.IdolImage) != "" {
		pose := strings.TrimSpace(req.StylePrompt)
		if pose == "" {
			pose = defaultDuoPose
		}
		b.WriteString("Create a single high-quality 4:3 landscape close-up of two people posing together.\n")
		b.WriteString("Person 1 is based on the first input image (user).\n")
		b.WriteString("Person 2 is based on the second input image (partner).\n")
		fmt.Fprintf(&b, "Pose: %s\n", pose)
		b.WriteString("Strict requirements:\n")
		writeRules(&b)
		b.WriteString("- Focus on preserving the facial identity of Person 1 and Person 2.\n")
	} else {
		pose := strings.TrimSpace(req.StylePrompt)
		if pose == "" {
			pose = defaultSoloPose
		}
		b.WriteString("Generate a single 4:3 landscape photobooth-style photo of ONE person.\n")
		fmt.Fprintf(&b, "Pose instruction: %s\n", pose)
		b.WriteString("Strict requirements:\n")
		writeRules(&b)
		b.WriteString("- Focus on preserving the facial identity.\n")
	}

	fmt.Fprintf(&b, "- Background: %s\n", background)
	return b.String()
}

func writeRules(b *strings.Builder) {
	for _, rule := range composeRules {
		fmt.Fprintf(b, "- %s\n", rule)
	}
}

func enhancePrompt(prompt string) string {
	return fmt.Sprintf(`Rewrite this image prompt to be more descriptive, artistic, and detailed for an AI generator. Keep it under 40 words. Avoid giving options, choose the best one. Answer in the same language the user wrote in. Do not add formatting like bold, italic, all caps, or asterisks. Original: "%s"`, prompt)
}
