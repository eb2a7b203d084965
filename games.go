/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Game is one entry in the gallery.
type Game struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Multiplayer bool   `json:"multiplayer"`
}

var gamesList = []Game{
	{
		ID:          "contexto",
		Name:        "Contexto",
		Description: "Adivinhe a palavra secreta usando dicas! Quanto mais próximo, menor a distância.",
		Multiplayer: true,
	},
	{
		ID:          "sintonia",
		Name:        "Sintonia",
		Description: "Jogo de sintonia e conexão. Em breve!",
		Multiplayer: true,
	},
	{
		ID:          "a-faixa",
		Name:        "Meio Termo",
		Description: "Jogo de meio termo e estratégia. Em breve!",
		Multiplayer: true,
	},
	{
		ID:          "exemplo-single",
		Name:        "Jogo Single Player",
		Description: "Exemplo de jogo para um jogador",
		Multiplayer: false,
	},
	{
		ID:          "colorama",
		Name:        "Colorama",
		Description: "Jogo de cores e estratégia. Em desenvolvimento!",
		Multiplayer: true,
	},
}

func gameByID(id string) (Game, bool) {
	for _, g := range gamesList {
		if g.ID == id {
			return g, true
		}
	}

	return Game{}, false
}
