//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SoundCardDevice is a playback PCM device on a sound card.
type SoundCardDevice struct {
	Card        int
	ID          int
	Description string
}

// Name returns the device name accepted by Open.
func (d SoundCardDevice) Name() string {
	return fmt.Sprintf("hw:%d,%d", d.Card, d.ID)
}

// String returns a human-readable representation of the SoundCardDevice.
func (d SoundCardDevice) String() string {
	return fmt.Sprintf("  %s: %s", d.Name(), d.Description)
}

// SoundCard is an enumerated sound card with its playback devices.
type SoundCard struct {
	ID          int
	Name        string
	Description string
	Devices     []SoundCardDevice
}

// String returns a human-readable representation of the SoundCard.
func (c SoundCard) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Card %d: %s (%s)\n", c.ID, c.Name, c.Description))
	for _, dev := range c.Devices {
		sb.WriteString(dev.String() + "\n")
	}

	return sb.String()
}

var (
	cardRegex = regexp.MustCompile(`^\s*(\d+)\s+\[\s*([^]]*?)\s*\]:\s*(.*)`)
	// Lines look like "02-00: Loopback PCM : Loopback PCM : playback 8 : capture 8".
	pcmRegex = regexp.MustCompile(`^(\d+)-(\d+): (.*?) :.*`)
)

// EnumerateCards scans /proc/asound to find all sound cards and their playback devices.
func EnumerateCards() ([]SoundCard, error) {
	cardsContent, err := os.ReadFile("/proc/asound/cards")
	if err != nil {
		return nil, fmt.Errorf("could not read card list: %w", err)
	}

	pcmContent, err := os.ReadFile("/proc/asound/pcm")
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not read PCM list: %w", err)
	}

	return parseCards(string(cardsContent), string(pcmContent)), nil
}

// findCard returns the index of the card whose id is name, or -1.
func findCard(cardsContent, name string) int {
	for _, line := range strings.Split(cardsContent, "\n") {
		matches := cardRegex.FindStringSubmatch(line)
		if len(matches) == 4 && strings.TrimSpace(matches[2]) == name {
			if id, err := strconv.Atoi(matches[1]); err == nil {
				return id
			}
		}
	}

	return -1
}

func parseCards(cardsContent, pcmContent string) []SoundCard {
	cardMap := make(map[int]*SoundCard)

	for _, line := range strings.Split(cardsContent, "\n") {
		matches := cardRegex.FindStringSubmatch(line)
		if len(matches) != 4 {
			continue
		}

		id, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		cardMap[id] = &SoundCard{
			ID:          id,
			Name:        strings.TrimSpace(matches[2]),
			Description: strings.TrimSpace(matches[3]),
		}
	}

	for _, line := range strings.Split(pcmContent, "\n") {
		matches := pcmRegex.FindStringSubmatch(line)
		if len(matches) < 4 || !strings.Contains(line, "playback") {
			continue
		}

		cardID, _ := strconv.Atoi(matches[1])
		devID, _ := strconv.Atoi(matches[2])

		card, ok := cardMap[cardID]
		if !ok {
			continue
		}

		card.Devices = append(card.Devices, SoundCardDevice{
			Card:        cardID,
			ID:          devID,
			Description: strings.TrimSpace(matches[3]),
		})
	}

	cardIDs := make([]int, 0, len(cardMap))
	for id := range cardMap {
		cardIDs = append(cardIDs, id)
	}

	sort.Ints(cardIDs)

	result := make([]SoundCard, 0, len(cardIDs))
	for _, id := range cardIDs {
		result = append(result, *cardMap[id])
	}

	return result
}
