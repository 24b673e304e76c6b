package handlers

import (
	"strings"

	"ceritanya-photobox/internal/photobox"
)

type layoutView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Slots       int    `json:"slots"`
	AspectRatio string `json:"aspectRatio"`
}

func toLayoutView(l photobox.Layout) layoutView {
	return layoutView{
		ID:          l.ID,
		Name:        l.Name,
		Kind:        string(l.Kind),
		Slots:       l.Slots,
		AspectRatio: l.AspectRatio,
	}
}

type slotView struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	State     string `json:"state"`
	Raw       string `json:"raw,omitempty"`
	Generated string `json:"generated,omitempty"`
	Active    string `json:"active,omitempty"`
	Filter    string `json:"filter,omitempty"`
	AIFlag    bool   `json:"aiFlag"`
	Selected  bool   `json:"selected"`
}

type studioView struct {
	Tokens           int      `json:"tokens"`
	PartnerSet       bool     `json:"partnerSet"`
	StylePrompt      string   `json:"stylePrompt"`
	BackgroundPrompt string   `json:"backgroundPrompt"`
	Selection        []string `json:"selection"`
	Generating       bool     `json:"generating"`
	Enhancing        bool     `json:"enhancing"`
	BatchCost        int      `json:"batchCost"`
}

type finalPhotoView struct {
	ID     string `json:"id"`
	Image  string `json:"image"`
	AIFlag bool   `json:"aiFlag"`
	Filter string `json:"filter,omitempty"`
}

type assemblyView struct {
	ThemeID  string           `json:"themeId"`
	FilterID string           `json:"filterId"`
	Order    []int            `json:"order"`
	ShowDate bool             `json:"showDate"`
	Photos   []finalPhotoView `json:"photos"`
}

type sessionView struct {
	ID       string        `json:"id"`
	Stage    string        `json:"stage"`
	Mode     string        `json:"mode,omitempty"`
	Layout   *layoutView   `json:"layout,omitempty"`
	Slots    []slotView    `json:"slots,omitempty"`
	Studio   studioView    `json:"studio"`
	Assembly *assemblyView `json:"assembly,omitempty"`
}

func toSessionView(s photobox.Session) sessionView {
	v := sessionView{
		ID:    s.ID,
		Stage: s.Stage.String(),
		Mode:  string(s.Mode),
		Studio: studioView{
			Tokens:           s.Ledger.Balance(),
			PartnerSet:       s.Studio.IdolPhoto != "",
			StylePrompt:      s.Studio.StylePrompt,
			BackgroundPrompt: s.Studio.BackgroundPrompt,
			Selection:        s.Studio.Selection.IDs(),
			Generating:       s.Generating,
			Enhancing:        s.Enhancing,
		},
	}

	// Surcharges mirror what the debit will charge: whitespace-only prompts
	// do not count.
	v.Studio.BatchCost = s.Ledger.BatchCost(photobox.BatchOptions{
		SelectedSlots: s.Studio.Selection.Count(),
		Partner:       s.Studio.IdolPhoto != "",
		Background:    strings.TrimSpace(s.Studio.BackgroundPrompt) != "",
		Style:         strings.TrimSpace(s.Studio.StylePrompt) != "",
	})

	if s.Layout.ID != "" {
		lv := toLayoutView(s.Layout)
		v.Layout = &lv
	}

	if s.Registry != nil {
		slots := s.Registry.Slots()
		v.Slots = make([]slotView, len(slots))
		for i, slot := range slots {
			v.Slots[i] = slotView{
				Index:     i,
				ID:        slot.ID,
				State:     slot.State.String(),
				Raw:       slot.Raw,
				Generated: slot.Generated,
				Active:    slot.Active,
				Filter:    slot.Filter,
				AIFlag:    slot.AIFlag(),
				Selected:  s.Studio.Selection.Has(slot.ID),
			}
		}
	}

	if len(s.FinalPhotos) > 0 {
		av := assemblyView{
			ThemeID:  s.Assembly.ThemeID,
			FilterID: s.Assembly.FilterID,
			Order:    s.Assembly.Order,
			ShowDate: s.Assembly.ShowDate,
		}
		for _, p := range s.OrderedFinalPhotos() {
			av.Photos = append(av.Photos, finalPhotoView{
				ID:     p.ID,
				Image:  p.Image(),
				AIFlag: p.AIFlag,
				Filter: p.Filter,
			})
		}
		v.Assembly = &av
	}

	return v
}
