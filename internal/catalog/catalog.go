// Package catalog 静态商品目录，来自配置文件
package catalog

import (
	"sort"

	"github.com/d60-Lab/cakeshop/config"
)

type Catalog struct {
	products []config.Product
	byID     map[int]config.Product
}

func New(products []config.Product) *Catalog {
	c := &Catalog{byID: make(map[int]config.Product, len(products))}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)
	}
	sort.Slice(c.products, func(i, j int) bool { return c.products[i].ID < c.products[j].ID })
	return c
}

// Products 按 id 升序
func (c *Catalog) Products() []config.Product {
	out := make([]config.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Lookup(id int) (config.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Empty 未配置目录时不校验商品 id
func (c *Catalog) Empty() bool { return len(c.products) == 0 }

// Price 某个规格的单价，最小货币单位
func (c *Catalog) Price(id int, weight string) (int, bool) {
	p, ok := c.byID[id]
	if !ok {
		return 0, false
	}
	price, ok := p.Prices[weight]
	return price, ok
}
